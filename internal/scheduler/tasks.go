// Package scheduler queues and runs enrichment jobs over the shared redis
// instance, so producers (backfill, API triggers) and the worker fleet stay
// decoupled.
package scheduler

import (
	"encoding/json"

	"enrichment_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskContactEnrich enriches one contact.
const TaskContactEnrich = "enrichment:contact"

// ContactEnrichPayload is the task body for TaskContactEnrich.
type ContactEnrichPayload struct {
	RequestID string `json:"requestId"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
}

// NewContactEnrichTask builds a TaskContactEnrich task. A missing request
// id is assigned here so every outcome row has a stable key; the returned
// payload carries the id the task was built with.
func NewContactEnrichTask(payload ContactEnrichPayload) (*asynq.Task, ContactEnrichPayload, error) {
	if payload.RequestID == "" {
		payload.RequestID = uuid.NewString()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ContactEnrichPayload{}, apperr.Wrap(apperr.KindUnrecoverable, "encoding task payload", err).WithOp("scheduler")
	}
	return asynq.NewTask(TaskContactEnrich, body), payload, nil
}

// ParseContactEnrichPayload decodes a TaskContactEnrich task body.
func ParseContactEnrichPayload(task *asynq.Task) (ContactEnrichPayload, error) {
	var payload ContactEnrichPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ContactEnrichPayload{}, apperr.Wrap(apperr.KindUnrecoverable, "undecodable task payload", err).WithOp("scheduler")
	}
	if payload.RequestID == "" {
		return ContactEnrichPayload{}, apperr.Validation("task payload has no request id").WithOp("scheduler")
	}
	return payload, nil
}
