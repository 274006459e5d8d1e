// Package event defines the diagnostic records emitted by the engine.
// Consumers (webhooks, in-process callbacks, log shippers) import this
// package to decode what the engine did; events never feed back into
// reconciliation.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the type of engine activity.
type Kind string

const (
	KindHide    Kind = "hide"    // an item was hidden
	KindRestore Kind = "restore" // an item was made visible again
	KindPass    Kind = "pass"    // a reconciliation pass completed
)

// Event is a single engine observation.
type Event struct {
	ID        string `json:"id"` // UUIDv7
	Kind      Kind   `json:"kind"`
	Category  string `json:"category,omitempty"`
	Key       string `json:"key,omitempty"`     // node key of the item
	Matched   string `json:"matched,omitempty"` // blocklist name that caused a hide
	Trigger   string `json:"trigger"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds

	// Pass summary, set on KindPass only.
	Scanned  int   `json:"scanned,omitempty"`
	Hidden   int   `json:"hidden,omitempty"`
	Restored int   `json:"restored,omitempty"`
	Errors   int   `json:"errors,omitempty"`
	Duration int64 `json:"duration_us,omitempty"`
}

// New stamps a fresh event of the given kind.
func New(kind Kind, trigger string) Event {
	return Event{
		ID:        newID(),
		Kind:      kind,
		Trigger:   trigger,
		Timestamp: time.Now().UnixMilli(),
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
