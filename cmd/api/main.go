package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/infrastructure/email"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/notification"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/repository"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/service"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/token"
	transport "github.com/Nemeth89/ECOMMERCE-Backend/internal/transport/http"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/transport/http/handler"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/transport/http/middleware"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/config"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/db"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/kafka"
	outbox "github.com/Nemeth89/ECOMMERCE-Backend/pkg/outbox/repository"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/outbox/worker"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/utils"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/validator"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using system envs")
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	endpoint := ""
	if cfg.Tracing.Enabled {
		endpoint = cfg.Tracing.Endpoint
	}

	tp, err := utils.InitTracer(ctx, "shop-api", endpoint, cfg.Env)
	if err != nil {
		log.Fatalf("Error init tracer: %v", err)
	}

	if err := db.Migrate(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Fatalf("error applying migrations: %v", err)
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("error creating postgres db: %v", err)
	}

	mongoClient, mongoDB, err := db.NewMongoDB(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("error connecting to mongo: %v", err)
	}

	redisClient, err := db.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("error connecting to redis: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	userRepo := repository.NewUserRepository(pool, logger)
	outboxRepo := outbox.NewOutboxRepository(logger)
	catalogRepo := repository.NewCatalogRepository(mongoDB, logger)

	var kafkaProducer kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer, err = kafka.NewProducer(cfg.Kafka.Brokers, logger)
		if err != nil {
			log.Fatalf("error creating kafka producer: %v", err)
		}

		outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, kafkaProducer, logger)
		reg.MustRegister(outboxProcessor.Collector())

		go outboxProcessor.Start(ctx)
	} else {
		logger.Warn("kafka disabled, outbox events stay unpublished")
	}

	dispatcher := notification.NewDispatcher(
		email.NewSMTPSender(cfg.Mail, logger),
		notification.DispatcherConfig{
			Workers:     cfg.Mail.Workers,
			QueueSize:   cfg.Mail.QueueSize,
			SendTimeout: cfg.Mail.SendTimeout,
		},
		logger,
	)
	reg.MustRegister(dispatcher.Collector())

	issuer, err := token.NewIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatalf("error creating token issuer: %v", err)
	}

	authService := service.NewAuthService(service.AuthDeps{
		Users:       userRepo,
		Outbox:      outboxRepo,
		Tx:          pool,
		Issuer:      issuer,
		Revocations: token.NewRevocationStore(redisClient),
		Notifier:    dispatcher,
		Templates:   notification.NewTemplates(cfg.Frontend.BaseURL, cfg.Auth.VerificationTTL, cfg.Auth.ResetTTL),
		Validator:   validator.NewValidator(cfg.Auth.PasswordMinLength),
		Logger:      logger,
	}, service.AuthConfig{
		VerificationTTL: cfg.Auth.VerificationTTL,
		SessionTTL:      cfg.Auth.SessionTTL,
		ResetTTL:        cfg.Auth.ResetTTL,
		BcryptCost:      cfg.Auth.BcryptCost,
		EventsTopic:     cfg.Kafka.Topic,
	})

	catalogService := service.NewCachedCatalogService(
		service.NewCatalogService(catalogRepo, logger),
		redisClient,
		cfg.Redis.CacheTTL,
		logger,
	)

	httpMetrics := middleware.NewHTTPMetrics()
	reg.MustRegister(httpMetrics.Collectors()...)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(otelfiber.Middleware())
	app.Use(httpMetrics.Handler())

	transport.RegisterRoutes(app, &transport.Handlers{
		Auth:    handler.NewAuthHandler(authService, cfg.HTTP.Timeout, logger),
		Catalog: handler.NewCatalogHandler(catalogService, cfg.HTTP.Timeout, logger),
	}, transport.RouterConfig{
		ImagesDir:   cfg.HTTP.ImagesDir,
		RequireAuth: middleware.NewAuthMiddleware(authService, cfg.HTTP.Timeout, logger),
	})

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Println("Metrics server is listening on " + cfg.Metrics.Port)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics serving failed: %v", err)
		}
	}()

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP: %v\n", err)
	} else {
		log.Println("HTTP Server stopped")
	}

	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Printf("Notification queue not drained: %v", err)
	} else {
		log.Println("Notification queue drained")
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics server: %v", err)
	}

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("Kafka close error: %v", err)
		} else {
			log.Println("Kafka producer closed")
		}
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Printf("Mongo disconnect error: %v", err)
	}

	pool.Close()
	log.Println("Postgres pool closed")

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error closing telemetry: %v\n", err)
	} else {
		log.Println("Telemetry closed")
	}
}
