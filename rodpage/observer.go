package rodpage

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/feedhider/dom"
)

//go:embed observer.js
var observerJS string

const bindingName = "__feedhider_binding"

// Observe installs the mutation observer on the current tab and on every
// document it loads later, and reports added nodes to Mutations
// subscribers until ctx is done.
func (p *Page) Observe(ctx context.Context) error {
	return p.observe(ctx, p.current())
}

func (p *Page) observe(ctx context.Context, page *rod.Page) error {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		p.logger.Warn("rodpage: addBinding failed (may already exist)", "error", err)
	}

	go p.listenBinding(ctx, page)

	if _, err := page.EvalOnNewDocument("(" + observerJS + ")()"); err != nil {
		return fmt.Errorf("rodpage: install observer: %w", err)
	}
	if _, err := page.Eval(observerJS); err != nil {
		return fmt.Errorf("rodpage: inject observer: %w", err)
	}
	p.logger.Debug("rodpage: observer injected")
	return nil
}

// Attach swaps in a new tab, typically after a browser recycle, installs
// the observer on it and announces the fresh document to subscribers.
func (p *Page) Attach(ctx context.Context, page *rod.Page) error {
	p.mu.Lock()
	p.page = page
	p.mu.Unlock()

	if err := p.observe(ctx, page); err != nil {
		return err
	}
	p.publish(dom.Batch{Added: 1, At: time.Now()})
	return nil
}

// listenBinding receives calls from the injected MutationObserver via
// Runtime.bindingCalled.
func (p *Page) listenBinding(ctx context.Context, page *rod.Page) {
	page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		b, err := parseBatch(e.Payload, time.Now())
		if err != nil {
			p.logger.Warn("rodpage: parse binding payload", "error", err)
			return
		}
		p.publish(b)
	})()
}

func parseBatch(payload string, at time.Time) (dom.Batch, error) {
	var msg struct {
		Added int `json:"added"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return dom.Batch{}, err
	}
	if msg.Added < 0 {
		msg.Added = 0
	}
	return dom.Batch{Added: msg.Added, At: at}, nil
}

// Mutations subscribes to added-node batches until ctx is done.
func (p *Page) Mutations(ctx context.Context) <-chan dom.Batch {
	ch := make(chan dom.Batch, 16)
	p.subMu.Lock()
	p.subs[ch] = struct{}{}
	p.subMu.Unlock()

	go func() {
		<-ctx.Done()
		p.subMu.Lock()
		delete(p.subs, ch)
		p.subMu.Unlock()
		close(ch)
	}()
	return ch
}

func (p *Page) publish(b dom.Batch) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- b:
		default:
			// Subscriber already has a batch queued.
		}
	}
}
