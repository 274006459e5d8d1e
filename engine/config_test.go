package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/feedhider/blocklist"
	"github.com/hazyhaar/feedhider/identity"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedhider.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Namespace != blocklist.Namespace {
		t.Errorf("Namespace: got %q", cfg.Namespace)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Path == "" {
		t.Errorf("Store: got %+v", cfg.Store)
	}
	if cfg.Browser.Headless == nil || !*cfg.Browser.Headless {
		t.Error("Browser.Headless: want true by default")
	}
	if cfg.Debounce.Window != 0 {
		t.Errorf("Debounce.Window: got %v, want 0", cfg.Debounce.Window)
	}
	if cfg.Layout.FeedItems != identity.DefaultLayout().FeedItems {
		t.Errorf("Layout.FeedItems: got %q", cfg.Layout.FeedItems)
	}
}

func TestLoadConfigFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
namespace: sync
store:
  driver: file
  path: /tmp/feedhider.yaml
browser:
  remote: ws://127.0.0.1:9222
  headless: false
  resource_blocking: [image, media]
page:
  url: https://www.youtube.com/feed/subscriptions
debounce:
  window: 150ms
layout:
  feed_items: ytd-rich-item-renderer
sinks:
  - type: stdout
  - type: webhook
    url: http://127.0.0.1:9000/events
http:
  addr: ":9090"
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Namespace != "sync" || cfg.Store.Driver != "file" {
		t.Errorf("got namespace=%q driver=%q", cfg.Namespace, cfg.Store.Driver)
	}
	if *cfg.Browser.Headless {
		t.Error("Browser.Headless: want false")
	}
	if len(cfg.Browser.ResourceBlocking) != 2 {
		t.Errorf("ResourceBlocking: got %v", cfg.Browser.ResourceBlocking)
	}
	if cfg.Debounce.Window != 150*time.Millisecond {
		t.Errorf("Debounce.Window: got %v", cfg.Debounce.Window)
	}
	if cfg.Layout.FeedItems != "ytd-rich-item-renderer" {
		t.Errorf("Layout.FeedItems: got %q", cfg.Layout.FeedItems)
	}
	if cfg.Layout.SuggestionItems == "" {
		t.Error("Layout.SuggestionItems: default not applied")
	}
	if len(SinksFromConfig(cfg.Sinks, nil, nil)) != 2 {
		t.Errorf("sinks: got %d, want 2", len(cfg.Sinks))
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr: got %q", cfg.HTTP.Addr)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "namespace: [\n"},
		{"unknown sink", "sinks:\n  - type: nats\n"},
		{"webhook without url", "sinks:\n  - type: webhook\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfigFile(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}
}
