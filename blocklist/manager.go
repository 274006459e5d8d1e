package blocklist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/feedhider/kvstore"
)

var (
	ErrEmptyName = errors.New("blocklist: name is empty")
	ErrDuplicate = errors.New("blocklist: name already blocked")
	ErrNotFound  = errors.New("blocklist: name not blocked")
)

// Manager edits the blocklist and the enabled flag. Read-modify-write
// cycles are serialised within the process.
type Manager struct {
	mu     sync.Mutex
	store  kvstore.Store
	ns     string
	now    func() time.Time
	policy *bluemonday.Policy
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides time.Now for dateAdded stamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithManagerNamespace overrides the store namespace. Default: "local".
func WithManagerNamespace(ns string) ManagerOption {
	return func(m *Manager) { m.ns = ns }
}

// NewManager creates a Manager over store.
func NewManager(store kvstore.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		ns:     Namespace,
		now:    time.Now,
		policy: bluemonday.StrictPolicy(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Clean strips markup and surrounding whitespace from user input.
func (m *Manager) Clean(name string) string {
	return strings.TrimSpace(html.UnescapeString(m.policy.Sanitize(name)))
}

// Add appends name to the blocklist. Duplicates are detected
// case-insensitively.
func (m *Manager) Add(ctx context.Context, name string) (Entry, error) {
	name = m.Clean(name)
	if name == "" {
		return Entry{}, ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := read(ctx, m.store, m.ns)
	if err != nil {
		return Entry{}, fmt.Errorf("blocklist: add: %w", err)
	}
	for _, e := range snap.List {
		if strings.EqualFold(e.Name, name) {
			return Entry{}, ErrDuplicate
		}
	}

	e := Entry{Name: name, DateAdded: m.now().UTC()}
	if err := m.writeList(ctx, append(snap.List, e)); err != nil {
		return Entry{}, fmt.Errorf("blocklist: add: %w", err)
	}
	return e, nil
}

// Remove deletes every entry whose name equals name exactly.
func (m *Manager) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := read(ctx, m.store, m.ns)
	if err != nil {
		return fmt.Errorf("blocklist: remove: %w", err)
	}
	kept := make(List, 0, len(snap.List))
	for _, e := range snap.List {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(snap.List) {
		return ErrNotFound
	}
	if err := m.writeList(ctx, kept); err != nil {
		return fmt.Errorf("blocklist: remove: %w", err)
	}
	return nil
}

// List returns the entries, most recently added first.
func (m *Manager) List(ctx context.Context) (List, error) {
	snap, err := read(ctx, m.store, m.ns)
	if err != nil {
		return nil, fmt.Errorf("blocklist: list: %w", err)
	}
	out := append(List(nil), snap.List...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateAdded.After(out[j].DateAdded)
	})
	return out, nil
}

// Enabled reports the enabled flag, true when unset.
func (m *Manager) Enabled(ctx context.Context) (bool, error) {
	snap, err := read(ctx, m.store, m.ns)
	if err != nil {
		return false, fmt.Errorf("blocklist: enabled: %w", err)
	}
	return snap.Enabled, nil
}

// SetEnabled writes the enabled flag.
func (m *Manager) SetEnabled(ctx context.Context, enabled bool) error {
	raw, _ := json.Marshal(enabled)
	if err := m.store.Set(ctx, m.ns, map[string]json.RawMessage{KeyEnabled: raw}); err != nil {
		return fmt.Errorf("blocklist: set enabled: %w", err)
	}
	return nil
}

func (m *Manager) writeList(ctx context.Context, list List) error {
	if list == nil {
		list = List{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, m.ns, map[string]json.RawMessage{KeyList: raw})
}
