// Package watch polls a SQLite handle for a version token and runs an action
// whenever the token moves. kvstore uses it to notice blocklist edits made by
// other processes (the CLI, a second daemon) sharing the same database file.
//
// Typical usage:
//
//	conn, _ := db.Conn(ctx) // dedicated connection: data_version is per-connection
//	w := watch.New(conn, watch.Options{Interval: 200 * time.Millisecond})
//	go w.OnChange(ctx, func(ctx context.Context) error { return publish(ctx) })
package watch

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Querier is the subset of *sql.DB / *sql.Conn the detectors need.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ChangeDetector reads a version token. Two calls returning different values
// mean something changed in between.
type ChangeDetector func(ctx context.Context, q Querier) (int64, error)

// Options tunes the watcher.
type Options struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the action fires.
	// 0 fires on the first poll that sees the change.
	Debounce time.Duration
	// Detector defaults to PragmaDataVersion.
	Detector ChangeDetector
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = PragmaDataVersion
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls q and calls the action on change.
type Watcher struct {
	q       Querier
	opts    Options
	version int64
}

// New creates a Watcher. Call OnChange to start polling.
func New(q Querier, opts Options) *Watcher {
	opts.defaults()
	return &Watcher{q: q, opts: opts}
}

// OnChange blocks until ctx is cancelled. If action fails the version is not
// advanced and the action runs again on the next poll.
func (w *Watcher) OnChange(ctx context.Context, action func(ctx context.Context) error) {
	log := w.opts.Logger

	if v, err := w.opts.Detector(ctx, w.q); err != nil {
		log.Warn("watch: initial version check failed", "error", err)
	} else {
		w.version = v
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounceCh <-chan time.Time
	var debounceTimer *time.Timer
	pending := int64(-1)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-ticker.C:
			cur, err := w.opts.Detector(ctx, w.q)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("watch: version check failed", "error", err)
				continue
			}
			if cur == w.version || cur == pending {
				continue
			}
			pending = cur
			if w.opts.Debounce <= 0 {
				w.fire(ctx, action, pending)
				pending = -1
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.opts.Debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			if pending >= 0 {
				w.fire(ctx, action, pending)
				pending = -1
			}
		}
	}
}

func (w *Watcher) fire(ctx context.Context, action func(ctx context.Context) error, ver int64) {
	if err := action(ctx); err != nil {
		w.opts.Logger.Error("watch: action failed", "error", err, "version", ver)
		return
	}
	w.version = ver
	w.opts.Logger.Debug("watch: change handled", "version", ver)
}

// PragmaDataVersion changes whenever another connection commits to the same
// database. The value is only comparable on a single connection.
func PragmaDataVersion(ctx context.Context, q Querier) (int64, error) {
	var v int64
	err := q.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}
