package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedhider/blocklist"
	"github.com/hazyhaar/feedhider/engine"
	"github.com/hazyhaar/feedhider/rodpage"
	"github.com/hazyhaar/feedhider/shield"
)

func newRunCmd(g *globals) *cobra.Command {
	var (
		url    string
		remote string
		addr   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Filter a live browser tab and serve the management API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if url != "" {
				cfg.Page.URL = url
			}
			if remote != "" {
				cfg.Browser.Remote = remote
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return runDaemon(cmd.Context(), g, cfg)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "page to filter")
	cmd.Flags().StringVar(&remote, "remote", "", "DevTools WebSocket URL of a running Chrome")
	cmd.Flags().StringVar(&addr, "addr", "", "management API listen address")
	return cmd
}

func runDaemon(ctx context.Context, g *globals, cfg engine.Config) error {
	logger := g.logger()

	store, err := g.openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := rodpage.Launch(ctx, rodpage.Config{
		RemoteURL:        cfg.Browser.Remote,
		Bin:              cfg.Browser.Bin,
		Headless:         *cfg.Browser.Headless,
		UserDataDir:      cfg.Browser.UserDataDir,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		URL:              cfg.Page.URL,
		LoadTimeout:      cfg.Page.LoadTimeout,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	page := sess.Page()
	sinks := engine.SinksFromConfig(cfg.Sinks, g.stdout, logger)
	eng := engine.New(cfg, page, page, store, engine.WithLogger(logger), engine.WithSinks(sinks...))
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Close()

	mgr := blocklist.NewManager(store, blocklist.WithManagerNamespace(cfg.Namespace))
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(mgr, eng, sess, logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("feedhider: api listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}
	logger.Info("feedhider: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("feedhider: shutdown", "error", err)
	}
	return nil
}

// notifier is the part of the engine the API needs.
type notifier interface {
	Notify(engine.Trigger)
}

// recycler restarts the browser behind the filtered tab.
type recycler interface {
	Recycle(ctx context.Context) error
}

func newRouter(mgr *blocklist.Manager, eng notifier, browser recycler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.DefaultAPIStack(logger) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	mgr.RegisterHTTP(r)

	// The engine reacts to store changes on its own; this forces a pass
	// after out-of-band page edits.
	r.Post("/api/reconcile", func(w http.ResponseWriter, r *http.Request) {
		eng.Notify(engine.TriggerManual)
		shield.GetLogger(r.Context()).Debug("feedhider: manual pass requested")
		w.WriteHeader(http.StatusAccepted)
	})

	if browser != nil {
		r.Post("/api/browser/recycle", func(w http.ResponseWriter, r *http.Request) {
			log := shield.GetLogger(r.Context())
			if err := browser.Recycle(r.Context()); err != nil {
				log.Error("feedhider: browser recycle failed", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			log.Info("feedhider: browser recycled")
			w.WriteHeader(http.StatusNoContent)
		})
	}
	return r
}
