// The backfill walks the contacts table and queues every contact that has
// no enrichment outcome yet. Safe to re-run: the worker's cooldown and
// in-flight guards absorb duplicates.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"enrichment_backend/internal/enrichment/repository"
	"enrichment_backend/internal/scheduler"
	"enrichment_backend/platform/config"
	"enrichment_backend/platform/db"
	"enrichment_backend/platform/logger"
)

func main() {
	batchSize := flag.Int("batch", 500, "contacts fetched per page")
	limit := flag.Int("limit", 0, "stop after enqueueing this many contacts (0 = no limit)")
	dryRun := flag.Bool("dry-run", false, "count contacts without enqueueing")
	delay := flag.Duration("delay", 0, "pause between enqueues, to spread the worker load")
	flag.Parse()

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

	repo := repository.New(pool, log)

	var queue *scheduler.Client
	if !*dryRun {
		queue, err = scheduler.NewClient(cfg, log)
		if err != nil {
			log.Error("failed to create queue client", "error", err.Error())
			os.Exit(1)
		}
		defer queue.Close()
	}

	var cursor int64
	enqueued := 0
	for {
		contacts, err := repo.PendingContacts(ctx, cursor, *batchSize)
		if err != nil {
			log.Error("failed to list contacts", "error", err.Error())
			os.Exit(1)
		}
		if len(contacts) == 0 {
			break
		}

		for _, contact := range contacts {
			cursor = contact.ID
			if *limit > 0 && enqueued >= *limit {
				log.Info("backfill limit reached", "enqueued", enqueued)
				return
			}
			if *dryRun {
				enqueued++
				continue
			}

			requestID, err := queue.EnqueueContactEnrich(ctx, scheduler.ContactEnrichPayload{
				Phone: contact.Phone,
				Email: contact.Email,
				Name:  contact.Name,
			})
			if err != nil {
				log.Error("failed to enqueue contact",
					"contact_id", contact.ID,
					"error", err.Error(),
				)
				os.Exit(1)
			}
			enqueued++
			log.Debug("contact enqueued",
				"contact_id", contact.ID,
				"request_id", requestID,
			)
			if *delay > 0 {
				time.Sleep(*delay)
			}
		}

		log.Info("backfill page processed", "cursor", cursor, "enqueued", enqueued)
	}

	log.Info("backfill finished", "enqueued", enqueued)
}
