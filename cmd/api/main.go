package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"reportapi/internal/blob"
	"reportapi/internal/config"
	"reportapi/internal/database"
	"reportapi/internal/database/migration"
	handlers "reportapi/internal/http/handler"
	"reportapi/internal/http/middleware"
	"reportapi/internal/otel"
	"reportapi/internal/repository/postgres"
	"reportapi/internal/service"
	"reportapi/internal/storage"
	"reportapi/internal/workstation"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, time.Local)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.Local, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Object storage is optional: without it everything works except
	// transcript exports.
	var exports storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		exports, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	}

	blobs, err := blob.NewDirectory(cfg.Upload.Dir)
	if err != nil {
		log.Fatalf("failed to initialize upload directory: %v", err)
	}

	engine, err := workstation.NewClient(cfg.Workstation)
	if err != nil {
		log.Fatalf("failed to initialize workstation client: %v", err)
	}

	// Initialize repository and service
	repo := postgres.NewReportPostgres(db)
	svc := service.NewReportService(repo, blobs, engine, exports)

	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.Upload.MaxSizeBytes),
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to initialize metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, svc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
