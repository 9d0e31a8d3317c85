// The worker consumes enrichment tasks from the queue, runs them through
// discovery and profile enrichment, and persists one outcome per request.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"enrichment_backend/internal/discovery"
	"enrichment_backend/internal/enrichment"
	"enrichment_backend/internal/enrichment/repository"
	"enrichment_backend/internal/scheduler"
	"enrichment_backend/migrations"
	"enrichment_backend/platform/config"
	"enrichment_backend/platform/db"
	"enrichment_backend/platform/events"
	"enrichment_backend/platform/logger"
	"enrichment_backend/platform/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, cfg, migrations.FS); err != nil {
		log.Error("failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	rdb, err := redis.NewClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if rdb == nil {
		log.Warn("no redis configured, caches and guards are per-process")
	} else {
		defer rdb.Close()
	}

	bus := events.NewInMemoryBus(log)
	repo := repository.New(pool, log)
	enrichment.SubscribeOutcomes(bus, repo, log)

	discoveryModule := discovery.NewModule(cfg, rdb, log)
	enrichmentModule := enrichment.NewModule(cfg, rdb, discoveryModule.Resolver(), discoveryModule.Meili(), bus, log)

	worker, err := scheduler.NewWorker(cfg, enrichmentModule.Orchestrator(), log)
	if err != nil {
		log.Error("failed to create worker", "error", err.Error())
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info("shutting down")
		worker.Shutdown()
	}()

	log.Info("worker starting",
		"queue", cfg.GetQueueName(),
		"concurrency", cfg.GetQueueConcurrency(),
	)
	if err := worker.Run(); err != nil {
		log.Error("worker stopped", "error", err.Error())
		os.Exit(1)
	}
}
