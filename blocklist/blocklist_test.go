package blocklist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/feedhider/kvstore"
)

func setRaw(t *testing.T, s kvstore.Store, key, raw string) {
	t.Helper()
	if err := s.Set(context.Background(), Namespace, map[string]json.RawMessage{key: json.RawMessage(raw)}); err != nil {
		t.Fatalf("set %s: %v", key, err)
	}
}

func TestSnapshot_DefaultsWhenMissing(t *testing.T) {
	a := NewAccessor(kvstore.NewMemory())
	snap := a.Snapshot(context.Background())
	if !snap.Enabled {
		t.Error("Enabled: got false, want true")
	}
	if len(snap.List) != 0 {
		t.Errorf("List: got %d entries, want 0", len(snap.List))
	}
}

func TestSnapshot_ReadsBothKeys(t *testing.T) {
	s := kvstore.NewMemory()
	setRaw(t, s, KeyList, `[{"name":"Foo","dateAdded":"2026-03-01T10:00:00.000Z"},{"name":"Bar"}]`)
	setRaw(t, s, KeyEnabled, `false`)

	snap := NewAccessor(s).Snapshot(context.Background())
	if snap.Enabled {
		t.Error("Enabled: got true, want false")
	}
	if len(snap.List) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(snap.List))
	}
	if snap.List[0].Name != "Foo" || snap.List[1].Name != "Bar" {
		t.Errorf("List order: got %q, %q", snap.List[0].Name, snap.List[1].Name)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !snap.List[0].DateAdded.Equal(want) {
		t.Errorf("DateAdded: got %v, want %v", snap.List[0].DateAdded, want)
	}
}

func TestSnapshot_NullEnabledIsDefault(t *testing.T) {
	s := kvstore.NewMemory()
	setRaw(t, s, KeyEnabled, `null`)
	if !NewAccessor(s).Snapshot(context.Background()).Enabled {
		t.Error("null flag should default to enabled")
	}
}

func TestSnapshot_AllOrDefault(t *testing.T) {
	t.Run("read failure", func(t *testing.T) {
		s := kvstore.NewMemory()
		setRaw(t, s, KeyList, `[{"name":"Foo"}]`)
		setRaw(t, s, KeyEnabled, `false`)
		s.FailReads(errors.New("disk gone"))

		snap := NewAccessor(s).Snapshot(context.Background())
		if !snap.Enabled || len(snap.List) != 0 {
			t.Errorf("got %+v, want defaults", snap)
		}
	})

	t.Run("decode failure keeps nothing", func(t *testing.T) {
		s := kvstore.NewMemory()
		setRaw(t, s, KeyList, `{"not":"a list"}`)
		setRaw(t, s, KeyEnabled, `false`)

		snap := NewAccessor(s).Snapshot(context.Background())
		if !snap.Enabled {
			t.Error("partial snapshot: enabled flag leaked from a failed read")
		}
		if len(snap.List) != 0 {
			t.Errorf("List: got %d entries, want 0", len(snap.List))
		}
	})
}

func TestSnapshot_Namespace(t *testing.T) {
	s := kvstore.NewMemory()
	if err := s.Set(context.Background(), "sync", map[string]json.RawMessage{KeyEnabled: json.RawMessage(`false`)}); err != nil {
		t.Fatal(err)
	}
	if !NewAccessor(s).Snapshot(context.Background()).Enabled {
		t.Error("default accessor read the sync namespace")
	}
	a := NewAccessor(s, WithNamespace("sync"))
	if a.Namespace() != "sync" {
		t.Errorf("Namespace: got %q", a.Namespace())
	}
	if a.Snapshot(context.Background()).Enabled {
		t.Error("sync accessor: got enabled, want disabled")
	}
}
