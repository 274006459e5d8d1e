package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Memory is a map-backed Store. It never fails unless closed or made to
// fail with FailReads.
type Memory struct {
	mu      sync.RWMutex
	data    map[string]map[string]json.RawMessage
	readErr error
	closed  bool
	changes *hub
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:    make(map[string]map[string]json.RawMessage),
		changes: newHub(),
	}
}

// FailReads makes every subsequent Get return err (nil restores normal reads).
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

func (m *Memory) Get(_ context.Context, namespace string, keys ...string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make(map[string]json.RawMessage, len(keys))
	ns := m.data[namespace]
	for _, k := range keys {
		if v, ok := ns[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

func (m *Memory) Set(_ context.Context, namespace string, values map[string]json.RawMessage) error {
	for k, v := range values {
		if !json.Valid(v) {
			return errors.New("kvstore: invalid JSON for key " + k)
		}
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	ns := m.data[namespace]
	if ns == nil {
		ns = make(map[string]json.RawMessage)
		m.data[namespace] = ns
	}
	for k, v := range values {
		ns[k] = append(json.RawMessage(nil), v...)
	}
	m.mu.Unlock()

	m.changes.publish(Change{Namespace: namespace, Keys: keysOf(values)})
	return nil
}

func (m *Memory) Delete(_ context.Context, namespace string, keys ...string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	for _, k := range keys {
		delete(m.data[namespace], k)
	}
	m.mu.Unlock()

	m.changes.publish(Change{Namespace: namespace, Keys: keys})
	return nil
}

func (m *Memory) Watch(ctx context.Context) (<-chan Change, error) {
	return m.changes.subscribe(ctx)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.changes.close()
	return nil
}
