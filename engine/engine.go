// CLAUDE:SUMMARY Reconciliation loop: serialises level-triggered passes over feed and suggestion items, driven by tree mutations and config changes.
// Package engine keeps a tree's visible items in line with the blocklist.
//
// Every pass re-reads the configuration snapshot and re-enumerates the
// current items; nothing is diffed against a previous pass. The hidden
// tag on each item is the only durable state, so passes can run any
// number of times and a pass over unchanged inputs writes nothing.
//
// Passes are triggered by tree mutations that add nodes, by configuration
// changes in the engine's namespace, and once at Start. Triggers never
// block their source: a pending trigger absorbs later ones, and one owner
// goroutine runs the passes one at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/feedhider/blocklist"
	"github.com/hazyhaar/feedhider/dom"
	"github.com/hazyhaar/feedhider/engine/event"
	"github.com/hazyhaar/feedhider/engine/internal/sink"
	"github.com/hazyhaar/feedhider/identity"
	"github.com/hazyhaar/feedhider/kvstore"
	"github.com/hazyhaar/feedhider/match"
	"github.com/hazyhaar/feedhider/reconcile"
)

// Trigger names what caused a pass.
type Trigger string

const (
	TriggerInitial  Trigger = "initial"
	TriggerMutation Trigger = "mutation"
	TriggerConfig   Trigger = "config"
	TriggerManual   Trigger = "manual"
)

// ErrRunning is returned by Start on an engine that is already running.
var ErrRunning = errors.New("engine: already running")

// Report summarises one pass.
type Report struct {
	Trigger  Trigger
	Enabled  bool
	Entries  int // blocklist size in the snapshot
	Scanned  int // untagged items examined
	Hidden   int
	Restored int
	Duration time.Duration
	Errors   []error
}

// Err joins the per-item errors of the pass.
func (r Report) Err() error { return errors.Join(r.Errors...) }

// Engine is the reconciliation loop for one tree.
type Engine struct {
	cfg        Config
	doc        dom.Document
	store      kvstore.Store
	access     *blocklist.Accessor
	rec        *reconcile.Reconciler
	strategies []identity.Strategy
	sinks      *sink.Router
	logger     *slog.Logger

	passMu sync.Mutex

	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pending chan Trigger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
	sinks  []Sink
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSinks adds event sinks.
func WithSinks(s ...Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s...) }
}

// New creates an Engine over doc. tagger holds the hidden tags; store
// holds the blocklist and the enabled flag in cfg.Namespace.
func New(cfg Config, doc dom.Document, tagger dom.Tagger, store kvstore.Store, opts ...Option) *Engine {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Engine{
		cfg:   cfg,
		doc:   doc,
		store: store,
		access: blocklist.NewAccessor(store,
			blocklist.WithNamespace(cfg.Namespace),
			blocklist.WithLogger(o.logger)),
		rec:        reconcile.New(doc, tagger),
		strategies: cfg.Layout.Strategies(),
		sinks:      sink.NewRouter(o.logger, o.sinks...),
		logger:     o.logger,
		pending:    make(chan Trigger, 1),
	}
}

// Start runs the initial pass, then follows mutations and configuration
// changes until Stop is called or ctx is done. Subscriptions are opened
// before the initial pass so no change made during it is missed.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.cancel != nil {
		return ErrRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	changes, err := e.store.Watch(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("engine: watch store: %w", err)
	}
	var mutations <-chan dom.Batch
	if obs, ok := e.doc.(dom.Observable); ok {
		mutations = obs.Mutations(runCtx)
	}

	e.Reconcile(runCtx, TriggerInitial)

	e.cancel = cancel
	e.wg.Add(2)
	go e.loop(runCtx)
	go e.forwardChanges(runCtx, changes)
	if mutations != nil {
		e.wg.Add(1)
		go e.forwardMutations(runCtx, mutations)
	}

	e.logger.Info("engine: started",
		"namespace", e.cfg.Namespace,
		"observing_mutations", mutations != nil,
		"debounce", e.cfg.Debounce.Window)
	return nil
}

// Stop cancels the subscriptions and waits for the running pass, if any,
// to finish. Calling Stop on a stopped engine does nothing.
func (e *Engine) Stop() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.wg.Wait()
	e.cancel = nil

	// Drop a trigger left over from the stopped run.
	select {
	case <-e.pending:
	default:
	}
	e.logger.Info("engine: stopped")
}

// Close stops the engine and closes its sinks.
func (e *Engine) Close() error {
	e.Stop()
	return e.sinks.Close()
}

// Notify requests a pass without blocking. It is how the trigger sources
// reach the loop and may be called by embedders as well.
func (e *Engine) Notify(t Trigger) {
	select {
	case e.pending <- t:
	default:
		// A pass is already pending and will see the same state.
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()
	d := newDebouncer(e.cfg.Debounce)
	defer d.reset()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-e.pending:
			if d.add(t) {
				t, _ = d.take()
				e.Reconcile(ctx, t)
			}
		case <-d.timerC():
			if t, ok := d.take(); ok {
				e.Reconcile(ctx, t)
			}
		}
	}
}

func (e *Engine) forwardMutations(ctx context.Context, batches <-chan dom.Batch) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-batches:
			if !ok {
				return
			}
			if b.Added > 0 {
				e.Notify(TriggerMutation)
			}
		}
	}
}

func (e *Engine) forwardChanges(ctx context.Context, changes <-chan kvstore.Change) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if c.Namespace == e.cfg.Namespace {
				e.Notify(TriggerConfig)
			}
		}
	}
}

// Reconcile runs one full pass synchronously. Passes never overlap: a
// call made while another pass runs waits for it.
func (e *Engine) Reconcile(ctx context.Context, t Trigger) Report {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	start := time.Now()
	snap := e.access.Snapshot(ctx)
	rep := Report{Trigger: t, Enabled: snap.Enabled, Entries: len(snap.List)}

	if !snap.Enabled {
		e.restoreAll(ctx, &rep)
	} else {
		e.hideMatching(ctx, &rep, match.Compile(snap.List))
	}

	rep.Duration = time.Since(start)
	passesTotal.WithLabelValues(string(t)).Inc()
	passDuration.Observe(rep.Duration.Seconds())
	if len(rep.Errors) > 0 {
		passErrors.Add(float64(len(rep.Errors)))
		e.logger.Warn("engine: pass had failures",
			"trigger", t, "errors", len(rep.Errors), "error", rep.Err())
	}
	e.logger.Debug("engine: pass complete",
		"trigger", t,
		"enabled", rep.Enabled,
		"entries", rep.Entries,
		"scanned", rep.Scanned,
		"hidden", rep.Hidden,
		"restored", rep.Restored,
		"duration", rep.Duration)

	ev := event.New(event.KindPass, string(t))
	ev.Scanned, ev.Hidden, ev.Restored = rep.Scanned, rep.Hidden, rep.Restored
	ev.Errors = len(rep.Errors)
	ev.Duration = rep.Duration.Microseconds()
	e.emit(ctx, ev)
	return rep
}

func (e *Engine) restoreAll(ctx context.Context, rep *Report) {
	restored, err := e.rec.RestoreAll()
	if err != nil {
		rep.Errors = append(rep.Errors, err)
	}
	rep.Restored = len(restored)
	restoredTotal.Add(float64(len(restored)))
	for _, n := range restored {
		ev := event.New(event.KindRestore, string(rep.Trigger))
		ev.Key = n.Key()
		e.emit(ctx, ev)
	}
}

func (e *Engine) hideMatching(ctx context.Context, rep *Report, needles match.Needles) {
	if needles.Empty() {
		return
	}
	for _, s := range e.strategies {
		for _, item := range e.doc.QueryAll(s.Items) {
			if e.rec.Hidden(item) {
				continue
			}
			rep.Scanned++

			name, ok := needles.Match(s.Extractor.Extract(item))
			if !ok {
				continue
			}
			changed, err := e.rec.Hide(item)
			if err != nil {
				rep.Errors = append(rep.Errors, err)
				continue
			}
			if !changed {
				continue
			}
			rep.Hidden++
			hiddenTotal.WithLabelValues(string(s.Category)).Inc()
			e.logger.Info("engine: hid item",
				"category", s.Category, "matched", name, "key", item.Key())

			ev := event.New(event.KindHide, string(rep.Trigger))
			ev.Category = string(s.Category)
			ev.Key = item.Key()
			ev.Matched = name
			e.emit(ctx, ev)
		}
	}
}

func (e *Engine) emit(ctx context.Context, ev event.Event) {
	if e.sinks.Len() == 0 {
		return
	}
	if err := e.sinks.Send(ctx, ev); err != nil {
		e.logger.Debug("engine: event delivery failed", "kind", ev.Kind, "error", err)
	}
}
