package enrichment

import "enrichment_backend/platform/events"

// Event names, one per terminal status.
const (
	EventCompleted = "enrichment.completed"
	EventPartial   = "enrichment.partial"
	EventFailed    = "enrichment.failed"
	EventSkipped   = "enrichment.skipped"
)

// EventNames lists every terminal event name, for subscribers that want all
// outcomes.
func EventNames() []string {
	return []string{EventCompleted, EventPartial, EventFailed, EventSkipped}
}

// Finished is published exactly once per enrichment request, when it
// reaches a terminal status.
type Finished struct {
	events.BaseEvent
	Outcome Outcome
}

// NewFinished creates a Finished event for an outcome.
func NewFinished(outcome Outcome) Finished {
	return Finished{BaseEvent: events.NewBaseEvent(), Outcome: outcome}
}

// EventName returns the status-specific event name.
func (e Finished) EventName() string {
	return "enrichment." + string(e.Outcome.Status)
}
