package rodpage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/feedhider/rodpage/internal/browser"
)

// Config describes the browser and the page to open.
type Config struct {
	RemoteURL        string
	Bin              string
	Headless         bool
	UserDataDir      string
	MemoryLimit      int64
	RecycleInterval  time.Duration
	ResourceBlocking []string

	URL         string
	LoadTimeout time.Duration

	Logger *slog.Logger
}

// Session owns one browser and the filtered tab inside it. When the
// browser is recycled the tab is reopened and reattached to the same Page,
// so an engine running over Page keeps working.
type Session struct {
	cfg  Config
	mgr  *browser.Manager
	page *Page
}

// Launch starts (or connects to) Chrome, opens cfg.URL and installs the
// mutation observer. The session lives until Close or until ctx is done.
func Launch(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.RemoteURL,
		Bin:              cfg.Bin,
		Headless:         cfg.Headless,
		UserDataDir:      cfg.UserDataDir,
		MemoryLimit:      cfg.MemoryLimit,
		RecycleInterval:  cfg.RecycleInterval,
		ResourceBlocking: cfg.ResourceBlocking,
		Logger:           cfg.Logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("rodpage: start browser: %w", err)
	}

	tab, err := browser.OpenTab(ctx, mgr, cfg.URL, cfg.LoadTimeout)
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("rodpage: open tab: %w", err)
	}

	s := &Session{cfg: cfg, mgr: mgr, page: New(tab, cfg.Logger)}
	if err := s.page.Observe(ctx); err != nil {
		mgr.Close()
		return nil, err
	}

	mgr.SetRecycleCallback(&browser.RecycleCallback{
		AfterRecycle: func(ctx context.Context, _ *rod.Browser) { s.reopen(ctx) },
	})

	cfg.Logger.Info("rodpage: filtering page", "url", cfg.URL)
	return s, nil
}

// Page returns the filtered tab.
func (s *Session) Page() *Page { return s.page }

// Recycle restarts the browser and reopens the tab.
func (s *Session) Recycle(ctx context.Context) error {
	return s.mgr.Recycle(ctx)
}

// Close shuts the browser down.
func (s *Session) Close() error {
	return s.mgr.Close()
}

func (s *Session) reopen(ctx context.Context) {
	tab, err := browser.OpenTab(ctx, s.mgr, s.cfg.URL, s.cfg.LoadTimeout)
	if err != nil {
		s.cfg.Logger.Error("rodpage: reopen tab failed", "url", s.cfg.URL, "error", err)
		return
	}
	if err := s.page.Attach(ctx, tab); err != nil {
		s.cfg.Logger.Error("rodpage: reattach observer failed", "error", err)
	}
}
