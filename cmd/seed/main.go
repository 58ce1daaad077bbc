package main

import (
	"context"
	"log"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/repository"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/service"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/config"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/db"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// seed replaces the menu and product collections with the defaults and drops
// the cached catalog so the API serves the new data at once.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using system envs")
	}

	cfg := config.MustLoad()

	logger, err := config.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, mongoDB, err := db.NewMongoDB(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("error connecting to mongo: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Mongo disconnect error: %v", err)
		}
	}()

	catalogRepo := repository.NewCatalogRepository(mongoDB, logger)

	menu := domain.DefaultMenu()
	if err := catalogRepo.ReplaceMenu(ctx, menu); err != nil {
		log.Fatalf("error seeding menu: %v", err)
	}

	products := domain.DefaultProducts()
	if err := catalogRepo.ReplaceProducts(ctx, products); err != nil {
		log.Fatalf("error seeding products: %v", err)
	}

	logger.Info("catalog seeded", zap.Int("menu_items", len(menu)), zap.Int("products", len(products)))

	redisClient, err := db.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, cached catalog left to expire", zap.Error(err))
		return
	}
	defer redisClient.Close()

	cached := service.NewCachedCatalogService(service.NewCatalogService(catalogRepo, logger), redisClient, cfg.Redis.CacheTTL, logger)
	if err := cached.Invalidate(ctx); err != nil {
		logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
