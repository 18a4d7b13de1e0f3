package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	PersonID  uuid.UUID      `json:"person_id"`
	Action    string         `json:"action"`
	RequestID string         `json:"request_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Actions recorded by the person service.
const (
	ActionPersonCreated   = "person.created"
	ActionPersonDeleted   = "person.deleted"
	ActionEntryAdded      = "entry.added"
	ActionProfileDerived  = "profile.derived"
	ActionDerivationError = "profile.derivation_error"
)
