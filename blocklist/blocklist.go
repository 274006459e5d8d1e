// CLAUDE:SUMMARY Blocklist types, store keys and the all-or-default configuration snapshot accessor.
// Package blocklist reads and edits the two configuration keys feedhider
// depends on: the list of blocked channel names and the enabled flag.
//
// The engine only ever reads, through Accessor. Manager is the editing side
// used by the CLI, the HTTP API and the MCP tools.
package blocklist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/feedhider/kvstore"
)

// Store keys and namespace.
const (
	Namespace  = "local"
	KeyList    = "blockedChannels"
	KeyEnabled = "blockingEnabled"
)

// Entry is one blocked name. Matching uses Name only.
type Entry struct {
	Name      string    `json:"name"`
	DateAdded time.Time `json:"dateAdded"`
}

// List is the ordered blocklist as stored.
type List []Entry

// Snapshot is the configuration as of one read.
type Snapshot struct {
	List    List `json:"blockedChannels"`
	Enabled bool `json:"blockingEnabled"`
}

// Defaults is the snapshot used when keys are missing or unreadable:
// enabled with an empty list, which hides nothing.
func Defaults() Snapshot {
	return Snapshot{Enabled: true}
}

// Accessor reads snapshots from a store.
type Accessor struct {
	store     kvstore.Store
	namespace string
	logger    *slog.Logger
}

// AccessorOption configures an Accessor.
type AccessorOption func(*Accessor)

// WithNamespace overrides the store namespace. Default: "local".
func WithNamespace(ns string) AccessorOption {
	return func(a *Accessor) { a.namespace = ns }
}

// WithLogger sets the logger for read failures.
func WithLogger(l *slog.Logger) AccessorOption {
	return func(a *Accessor) { a.logger = l }
}

// NewAccessor creates an Accessor over store.
func NewAccessor(store kvstore.Store, opts ...AccessorOption) *Accessor {
	a := &Accessor{store: store, namespace: Namespace, logger: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Namespace returns the namespace the accessor reads.
func (a *Accessor) Namespace() string { return a.namespace }

// Snapshot returns the current configuration. It never fails: any read or
// decode error yields Defaults as a whole, never a partial snapshot.
func (a *Accessor) Snapshot(ctx context.Context) Snapshot {
	snap, err := read(ctx, a.store, a.namespace)
	if err != nil {
		a.logger.Warn("blocklist: snapshot read failed, using defaults", "error", err)
		return Defaults()
	}
	return snap
}

func read(ctx context.Context, store kvstore.Store, ns string) (Snapshot, error) {
	vals, err := store.Get(ctx, ns, KeyList, KeyEnabled)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Defaults()
	if raw, ok := vals[KeyList]; ok {
		if err := json.Unmarshal(raw, &snap.List); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", KeyList, err)
		}
	}
	if raw, ok := vals[KeyEnabled]; ok {
		var enabled *bool
		if err := json.Unmarshal(raw, &enabled); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", KeyEnabled, err)
		}
		if enabled != nil {
			snap.Enabled = *enabled
		}
	}
	return snap, nil
}
