package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tableside-backend/api/middleware"
	"github.com/angelmondragon/tableside-backend/api/routes"
	"github.com/angelmondragon/tableside-backend/internal/auth"
	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/catalog"
	"github.com/angelmondragon/tableside-backend/internal/modifiers"
	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/internal/organizations"
	"github.com/angelmondragon/tableside-backend/internal/realtime"
	"github.com/angelmondragon/tableside-backend/internal/tables"
	"github.com/angelmondragon/tableside-backend/pkg/auth/session"
	"github.com/angelmondragon/tableside-backend/pkg/config"
	"github.com/angelmondragon/tableside-backend/pkg/db"
	"github.com/angelmondragon/tableside-backend/pkg/env"
	"github.com/angelmondragon/tableside-backend/pkg/instance"
	"github.com/angelmondragon/tableside-backend/pkg/lock"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/metrics"
	"github.com/angelmondragon/tableside-backend/pkg/migrate"
	"github.com/angelmondragon/tableside-backend/pkg/outbox"
	"github.com/angelmondragon/tableside-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

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
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	services, background, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	for _, run := range background {
		go run(ctx)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shutting down gracefully")
}

// buildServices wires the domain services and returns the loops that must
// run alongside the HTTP server.
func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
) (routes.Services, []func(context.Context), error) {
	var none routes.Services

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return none, nil, err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Accounts:       organizations.NewRepository(dbClient.DB()),
		Tx:             dbClient,
		Sessions:       sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return none, nil, err
	}

	orderingMetrics := metrics.NewOrderingMetrics(prometheus.DefaultRegisterer)

	submitLocks, err := lock.New(redisClient, cfg.Ordering.SubmitLockTTL)
	if err != nil {
		return none, nil, err
	}
	deleteGuards, err := lock.New(redisClient, cfg.Ordering.DeleteGuardTTL)
	if err != nil {
		return none, nil, err
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:    catalogRepo,
		Tx:      dbClient,
		Guard:   deleteGuards,
		Keys:    redisClient,
		Metrics: orderingMetrics,
		Logger:  logg,
	})
	if err != nil {
		return none, nil, err
	}

	cartStore, err := cart.NewStore(redisClient, cfg.Ordering.CartTTL, logg)
	if err != nil {
		return none, nil, err
	}
	cartService, err := cart.NewService(cartStore, catalogRepo)
	if err != nil {
		return none, nil, err
	}
	modifierService, err := modifiers.NewService(catalogRepo, catalogRepo, logg)
	if err != nil {
		return none, nil, err
	}

	bus, err := realtime.NewBus(redisClient, logg)
	if err != nil {
		return none, nil, err
	}
	hub := realtime.NewHub(middleware.AllowedOrigins(cfg.App.PublicOrigin)...)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Carts:    cartService,
		Locker:   submitLocks,
		Keys:     redisClient,
		Outbox:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Notifier: bus,
		Metrics:  orderingMetrics,
		Logger:   logg,
	})
	if err != nil {
		return none, nil, err
	}

	tableService, err := tables.NewService(tables.ServiceParams{
		Repo:         tables.NewRepository(dbClient.DB()),
		Orders:       orderService,
		PublicOrigin: cfg.App.PublicOrigin,
		Notifier:     bus,
		Logger:       logg,
	})
	if err != nil {
		return none, nil, err
	}
	projector, err := tables.NewProjector(tableService, bus, hub, logg)
	if err != nil {
		return none, nil, err
	}

	background := []func(context.Context){
		hub.Run,
		func(ctx context.Context) {
			if err := projector.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "table projector stopped", err)
			}
		},
	}

	return routes.Services{
		Auth:      authService,
		Sessions:  sessionManager,
		Catalog:   catalogService,
		Modifiers: modifierService,
		Cart:      cartService,
		Orders:    orderService,
		Tables:    tableService,
		Hub:       hub,
		Metrics:   promhttp.Handler(),
	}, background, nil
}
