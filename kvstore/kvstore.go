// CLAUDE:SUMMARY Namespaced JSON key-value store interface, change hub and driver selection (sqlite, file, memory).
// Package kvstore is the persisted configuration store feedhider reads its
// blocklist and enabled flag from. Values are JSON documents grouped by
// namespace; every write, local or external, is announced on Watch.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: closed")

// Store is a namespaced JSON key-value store.
type Store interface {
	// Get returns the values present for keys. Missing keys are absent from
	// the map; that is not an error.
	Get(ctx context.Context, namespace string, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, namespace string, values map[string]json.RawMessage) error
	Delete(ctx context.Context, namespace string, keys ...string) error
	// Watch streams change notifications until ctx is done.
	Watch(ctx context.Context) (<-chan Change, error)
	Close() error
}

// Change announces that keys in a namespace may have changed. Keys is empty
// when the store cannot tell which keys moved.
type Change struct {
	Namespace string   `json:"namespace"`
	Keys      []string `json:"keys,omitempty"`
}

// Config selects and configures a driver.
type Config struct {
	Driver string `yaml:"driver"` // sqlite | file | memory
	Path   string `yaml:"path"`
}

// Open opens the store described by cfg. The sqlite driver is the default.
func Open(cfg Config, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.Path == "" {
			cfg.Path = "feedhider.db"
		}
		return OpenSQLite(cfg.Path, WithLogger(logger))
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("kvstore: file driver needs a path")
		}
		return OpenFile(cfg.Path, WithLogger(logger))
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q", cfg.Driver)
	}
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for background watch failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// hub fans change notifications out to subscribers. A subscriber whose
// buffer is full misses the notification; the next one still arrives and
// every change carries the same meaning to readers: re-read the store.
type hub struct {
	mu     sync.Mutex
	subs   map[chan Change]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[chan Change]struct{})}
}

func (h *hub) subscribe(ctx context.Context) (<-chan Change, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	ch := make(chan Change, 16)
	h.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		h.unsubscribe(ch)
	}()
	return ch, nil
}

func (h *hub) unsubscribe(ch chan Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func keysOf(values map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys
}
