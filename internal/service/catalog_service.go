package service

import (
	"context"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CatalogService interface {
	ListMenu(ctx context.Context) ([]domain.MenuItem, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type catalogService struct {
	repo   repository.CatalogRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCatalogService(repo repository.CatalogRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("service/catalog_service"),
	}
}

func (s *catalogService) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ListMenu")
	defer span.End()

	return s.repo.ListMenu(ctx)
}

func (s *catalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ListProducts")
	defer span.End()

	return s.repo.ListProducts(ctx)
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.GetProduct")
	defer span.End()

	return s.repo.GetProduct(ctx, id)
}
