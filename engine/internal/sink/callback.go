// CLAUDE:SUMMARY In-process callback sink delivering engine events via Go function calls.
package sink

import (
	"context"

	"github.com/hazyhaar/feedhider/engine/event"
)

// EventFunc is called for each event (in-process, zero serialisation).
type EventFunc func(ctx context.Context, ev event.Event) error

// Callback delivers events via Go function calls, for embedders that run
// the engine in the same binary as their consumer.
type Callback struct {
	fn EventFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn EventFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, ev event.Event) error {
	if c.fn != nil {
		return c.fn(ctx, ev)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
