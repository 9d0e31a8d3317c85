package enrichment

import (
	"context"

	"enrichment_backend/platform/events"
	"enrichment_backend/platform/logger"
)

// Store persists terminal outcomes. Satisfied by the enrichment repository.
type Store interface {
	SaveOutcome(ctx context.Context, outcome Outcome) error
}

// SubscribeOutcomes wires a store to every terminal event so each finished
// request lands in persistence exactly once. Persistence failures are
// surfaced to the publisher through the bus.
func SubscribeOutcomes(bus events.Bus, store Store, log *logger.Logger) {
	handler := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		finished, ok := event.(Finished)
		if !ok {
			log.Error("unexpected event payload", "event", event.EventName())
			return nil
		}
		if err := store.SaveOutcome(ctx, finished.Outcome); err != nil {
			log.DatabaseError("save_outcome", err)
			return err
		}
		return nil
	})

	for _, name := range EventNames() {
		bus.Subscribe(name, handler)
	}
}
