package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/tapcards-backend/api"
	"github.com/angelmondragon/tapcards-backend/api/controllers"
	"github.com/angelmondragon/tapcards-backend/api/routes"
	"github.com/angelmondragon/tapcards-backend/internal/auth"
	"github.com/angelmondragon/tapcards-backend/internal/catalog"
	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/internal/notifications"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/internal/payments"
	"github.com/angelmondragon/tapcards-backend/internal/pricing"
	"github.com/angelmondragon/tapcards-backend/internal/users"
	"github.com/angelmondragon/tapcards-backend/pkg/auth/session"
	"github.com/angelmondragon/tapcards-backend/pkg/config"
	"github.com/angelmondragon/tapcards-backend/pkg/db"
	"github.com/angelmondragon/tapcards-backend/pkg/locale"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/metrics"
	"github.com/angelmondragon/tapcards-backend/pkg/migrate"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/redis"
	"github.com/angelmondragon/tapcards-backend/pkg/storage"
	"github.com/angelmondragon/tapcards-backend/pkg/storage/gcsstore"
	"github.com/angelmondragon/tapcards-backend/pkg/storage/local"
	"github.com/angelmondragon/tapcards-backend/pkg/storage/s3store"
)

var supportedLocales = []string{"fr", "en", "ar"}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("run dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	backend, files, err := buildStorage(ctx, cfg, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	workflow := metrics.NewWorkflowMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("create session manager: %w", err)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("create auth service: %w", err)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo, cfg.Catalog.DefaultLocale)
	if err != nil {
		return fmt.Errorf("create catalog service: %w", err)
	}
	pricingService, err := pricing.NewService(catalogRepo, logg)
	if err != nil {
		return fmt.Errorf("create pricing service: %w", err)
	}

	mediaService, err := media.NewService(backend, media.Limits{
		ImageMaxBytes:    cfg.Uploads.ImageMaxBytes(),
		DocumentMaxBytes: cfg.Uploads.DocumentMaxBytes(),
	}, logg)
	if err != nil {
		return fmt.Errorf("create media service: %w", err)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, catalogRepo, mediaService, dbClient, outboxService, workflow, logg)
	if err != nil {
		return fmt.Errorf("create orders service: %w", err)
	}

	notifier, err := notifications.NewOutboxNotifier(outboxService)
	if err != nil {
		return fmt.Errorf("create payment notifier: %w", err)
	}
	paymentsService, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		ordersRepo,
		ordersService,
		mediaService,
		dbClient,
		outboxService,
		notifier,
		workflow,
		logg,
	)
	if err != nil {
		return fmt.Errorf("create payments service: %w", err)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return fmt.Errorf("create notifications service: %w", err)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:     cfg,
		Logger:     logg,
		Sessions:   sessionManager,
		Redis:      redisClient,
		Locales:    locale.NewNegotiator(cfg.Catalog.DefaultLocale, supportedLocales...),
		LocalFiles: files,
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"storage":  backend,
		},
		Metrics:       metrics.NewHTTPMetrics(registry),
		Gatherer:      registry,
		Auth:          authService,
		Catalog:       catalogService,
		Pricing:       pricingService,
		Orders:        ordersService,
		Payments:      paymentsService,
		Notifications: notificationsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": cfg.Storage.Driver,
	})
	logg.Info(logCtx, "starting api server")

	return api.Serve(ctx, api.NewServer(addr, handler), logg)
}

// buildStorage returns the upload backend and, for the local driver, a handler serving its files.
func buildStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.Backend, http.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case config.StorageDriverS3:
		store, err := s3store.New(ctx, cfg.AWS, cfg.Storage.SignedURLTTL, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap s3 storage: %w", err)
		}
		return store, nil, nil
	case config.StorageDriverGCS:
		store, err := gcsstore.New(ctx, cfg.GCP, cfg.GCS, cfg.Storage.SignedURLTTL, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap gcs storage: %w", err)
		}
		return store, nil, nil
	default:
		store, err := local.New(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap local storage: %w", err)
		}
		return store, http.FileServer(http.Dir(store.Root())), nil
	}
}
