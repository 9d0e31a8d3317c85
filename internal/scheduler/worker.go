package scheduler

import (
	"context"
	"fmt"

	"enrichment_backend/internal/enrichment"
	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/config"
	"enrichment_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Enricher runs one enrichment request to a terminal outcome. Satisfied by
// *enrichment.Orchestrator.
type Enricher interface {
	Enrich(ctx context.Context, req enrichment.Request) enrichment.Outcome
}

// Worker consumes enrichment tasks from the queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

// NewWorker creates a queue consumer bound to the enricher.
func NewWorker(cfg config.SchedulerConfig, enricher Enricher, log *logger.Logger) (*Worker, error) {
	connOpt, err := redisConnOpt(cfg)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(connOpt, asynq.Config{
		Concurrency: cfg.GetQueueConcurrency(),
		Queues:      map[string]int{cfg.GetQueueName(): 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskContactEnrich, handleContactEnrich(enricher, log))

	return &Worker{server: server, mux: mux, log: log}, nil
}

// handleContactEnrich adapts the orchestrator to a task handler. The
// orchestrator never errors; only an undecodable payload fails the task,
// and that is not worth redelivering.
func handleContactEnrich(enricher Enricher, log *logger.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := ParseContactEnrichPayload(task)
		if err != nil {
			log.Error("dropping malformed task", "error", err.Error())
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		outcome := enricher.Enrich(ctx, enrichment.Request{
			RequestID: payload.RequestID,
			Phone:     payload.Phone,
			Email:     payload.Email,
			Name:      payload.Name,
		})

		// A failed persistence surfaces through the bus inside Enrich; from
		// the queue's point of view the task itself succeeded.
		if outcome.Status == enrichment.StatusFailed && outcome.Reason != enrichment.ReasonIdentityNotFound {
			log.Warn("enrichment failed",
				"request_id", outcome.RequestID,
				"reason", outcome.Reason,
			)
		}
		return nil
	}
}

// Run blocks processing tasks until Shutdown is called.
func (w *Worker) Run() error {
	if err := w.server.Run(w.mux); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "queue server stopped", err).WithOp("scheduler")
	}
	return nil
}

// Shutdown stops the worker gracefully, letting in-flight tasks finish.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
