package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/musebox/musebox-backend/internal/aigc"
	"github.com/musebox/musebox-backend/internal/aigc/consumer"
	"github.com/musebox/musebox-backend/internal/comments"
	"github.com/musebox/musebox-backend/internal/songs"
	"github.com/musebox/musebox-backend/pkg/config"
	"github.com/musebox/musebox-backend/pkg/dashscope"
	"github.com/musebox/musebox-backend/pkg/db"
	"github.com/musebox/musebox-backend/pkg/logger"
	"github.com/musebox/musebox-backend/pkg/metrics"
	"github.com/musebox/musebox-backend/pkg/pubsub"
	"github.com/musebox/musebox-backend/pkg/redis"
	"github.com/musebox/musebox-backend/pkg/storage/gcs"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "error closing gcs", err)
		}
	}()

	providerClient, err := dashscope.NewClient(cfg.DashScope)
	requireResource(ctx, logg, "dashscope", err)

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	orchestrator, err := aigc.NewOrchestrator(aigc.OrchestratorParams{
		Repo:     aigc.NewRepository(dbClient.DB()),
		Songs:    songs.NewRepository(dbClient.DB()),
		Comments: comments.NewRepository(dbClient.DB()),
		Provider: providerClient,
		Store:    gcsClient,
		Leases:   redisClient,
		Logger:   logg,
		Metrics:  pipelineMetrics,
		Config:   cfg.Pipeline,
		WorkerID: instanceID(),
	})
	requireResource(ctx, logg, "orchestrator", err)

	subscription := pubsubClient.GenerationSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "generation subscription", errors.New("subscription not configured"))
	}

	taskConsumer, err := consumer.NewConsumer(orchestrator, subscription, logg)
	requireResource(ctx, logg, "task consumer", err)

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		GCS:      gcsClient,
		Consumer: taskConsumer,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "generation worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "generation worker failed", err)
		os.Exit(1)
	}
}

func instanceID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return ""
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
