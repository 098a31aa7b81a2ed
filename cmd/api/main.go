package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fincms/docs"
	"fincms/internal/config"
	"fincms/internal/database"
	"fincms/internal/database/migration"
	handlers "fincms/internal/http/handler"
	"fincms/internal/http/middleware"
	"fincms/internal/identity"
	"fincms/internal/logger"
	tracing "fincms/internal/otel"
	"fincms/internal/repository/postgres"
	"fincms/internal/service"
	"fincms/internal/storage"
)

// @title Financial Document API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logg, err := logger.New(cfg.Log, cfg.Location())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if cfg.JWT.Secret == "" {
		logg.Fatal("JWT_SECRET_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logg)
	if err != nil {
		logg.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logg.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	// PostgreSQL connection with pooling via database/sql
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logg.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logg, cfg.Database.Host); err != nil {
		logg.Fatal("failed to migrate database", zap.Error(err))
	}
	if err := database.RegisterStats(prometheus.DefaultRegisterer, db, cfg.Database.Name); err != nil {
		logg.Fatal("failed to register database metrics", zap.Error(err))
	}

	// S3-compatible object storage (MinIO-supported) behind the content store
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		logg.Fatal("failed to initialize object storage", zap.Error(err))
	}
	content := storage.NewContentStore(objStore, cfg.Documents.ContentTimeout)

	clock := clockwork.NewRealClock()
	docRepo := postgres.NewDocumentPostgres(db)
	viewRepo := postgres.NewRecentViewPostgres(db)
	opts := service.OptionsFromConfig(cfg.Documents)
	opts.Clock = clock
	tracker := service.NewRecentViewTracker(viewRepo, opts, logg)
	docSvc := service.NewDocumentService(content, docRepo, tracker, opts, logg)
	verifier := identity.NewJWTProvider(cfg.JWT, clock)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Multipart overhead on top of the largest accepted file.
		BodyLimit: int(cfg.Documents.MaxContentLength) + 1<<20,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		logg.Fatal("failed to register http metrics", zap.Error(err))
	}

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logg))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.RegisterRoutes(app, db, docSvc, verifier)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		logg.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logg.Warn("server shutdown failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logg.Info("listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logg.Fatal("failed to start server", zap.Error(err))
	}
}
