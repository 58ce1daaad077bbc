package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	menuCollection    = "menu_items"
	productCollection = "items"
)

type CatalogRepository interface {
	ListMenu(ctx context.Context) ([]domain.MenuItem, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ReplaceMenu(ctx context.Context, items []domain.MenuItem) error
	ReplaceProducts(ctx context.Context, products []domain.Product) error
}

type catalogRepository struct {
	db     *mongo.Database
	tracer trace.Tracer
	logger *zap.Logger
}

func NewCatalogRepository(db *mongo.Database, logger *zap.Logger) CatalogRepository {
	return &catalogRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("repository/catalog_repo"),
	}
}

func (r *catalogRepository) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ListMenu")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.db.Collection(menuCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to list menu", zap.Error(err))

		return nil, fmt.Errorf("error listing menu: %w", err)
	}

	items := make([]domain.MenuItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("error decoding menu: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(items)))

	return items, nil
}

func (r *catalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ListProducts")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.db.Collection(productCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to list products", zap.Error(err))

		return nil, fmt.Errorf("error listing products: %w", err)
	}

	products := make([]domain.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("error decoding products: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(products)))

	return products, nil
}

func (r *catalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetProduct")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrProductNotFound
	}

	var product domain.Product
	if err := r.db.Collection(productCollection).FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to get product", zap.String("id", id), zap.Error(err))

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &product, nil
}

// ReplaceMenu drops every menu item and inserts items in order.
func (r *catalogRepository) ReplaceMenu(ctx context.Context, items []domain.MenuItem) error {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ReplaceMenu")
	defer span.End()

	now := time.Now().UTC()
	docs := make([]any, 0, len(items))
	for _, item := range items {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		docs = append(docs, item)
	}

	if err := r.replace(ctx, menuCollection, docs); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *catalogRepository) ReplaceProducts(ctx context.Context, products []domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ReplaceProducts")
	defer span.End()

	docs := make([]any, 0, len(products))
	for _, p := range products {
		docs = append(docs, p)
	}

	if err := r.replace(ctx, productCollection, docs); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *catalogRepository) replace(ctx context.Context, collection string, docs []any) error {
	coll := r.db.Collection(collection)

	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("error clearing %s: %w", collection, err)
	}

	if len(docs) == 0 {
		return nil
	}

	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("error inserting into %s: %w", collection, err)
	}

	mylogger.Info(ctx, r.logger, "Collection replaced", zap.String("collection", collection), zap.Int("count", len(docs)))

	return nil
}
