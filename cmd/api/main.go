package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/divvyup/divvyup-backend/api/routes"
	claimsdomain "github.com/divvyup/divvyup-backend/internal/claims"
	"github.com/divvyup/divvyup-backend/internal/members"
	"github.com/divvyup/divvyup-backend/internal/receipts"
	"github.com/divvyup/divvyup-backend/internal/rooms"
	"github.com/divvyup/divvyup-backend/pkg/config"
	"github.com/divvyup/divvyup-backend/pkg/db"
	"github.com/divvyup/divvyup-backend/pkg/logger"
	"github.com/divvyup/divvyup-backend/pkg/metrics"
	"github.com/divvyup/divvyup-backend/pkg/migrate"
	"github.com/divvyup/divvyup-backend/pkg/redis"
)

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	roomMetrics := metrics.NewRoomMetrics(registry)

	receiptService, err := receipts.NewService(receipts.ServiceParams{DB: dbClient})
	if err != nil {
		logg.Error(context.Background(), "failed to create receipt service", err)
		os.Exit(1)
	}

	memberService, err := members.NewService(members.ServiceParams{
		MemberRepo: members.NewRepository(dbClient.DB()),
		RoomRepo:   rooms.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create membership service", err)
		os.Exit(1)
	}

	claimService, err := claimsdomain.NewService(claimsdomain.ServiceParams{
		DB:      dbClient,
		Metrics: roomMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create claim service", err)
		os.Exit(1)
	}

	roomService, err := rooms.NewService(rooms.ServiceParams{
		DB:           dbClient,
		Metrics:      roomMetrics,
		PollInterval: cfg.Pulse.PollInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create room service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			receiptService,
			roomService,
			memberService,
			claimService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
