// Package domtest provides wrappers for testing code written against the
// dom capabilities: counting every query and write, and injecting failures.
package domtest

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/hazyhaar/feedhider/dom"
)

// ErrInjected is returned by failing wrappers.
var ErrInjected = errors.New("domtest: injected failure")

// Document counts queries and visibility writes on an inner document.
type Document struct {
	Inner dom.Document

	Queries atomic.Int64
	Writes  atomic.Int64
	// FailWrites makes SetHidden fail without touching Inner.
	FailWrites atomic.Bool
}

// NewDocument wraps inner.
func NewDocument(inner dom.Document) *Document {
	return &Document{Inner: inner}
}

func (d *Document) QueryAll(selector string) []dom.Node {
	d.Queries.Add(1)
	return d.Inner.QueryAll(selector)
}

func (d *Document) SetHidden(n dom.Node, hidden bool) error {
	if d.FailWrites.Load() {
		return ErrInjected
	}
	d.Writes.Add(1)
	return d.Inner.SetHidden(n, hidden)
}

// Mutations forwards to Inner when it is observable. Otherwise the returned
// channel closes when ctx is done.
func (d *Document) Mutations(ctx context.Context) <-chan dom.Batch {
	if o, ok := d.Inner.(dom.Observable); ok {
		return o.Mutations(ctx)
	}
	ch := make(chan dom.Batch)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

// Tagger counts tag writes on an inner tagger.
type Tagger struct {
	Inner dom.Tagger

	Writes atomic.Int64
	// FailTag makes Tag fail; FailUntag makes Untag fail.
	FailTag   atomic.Bool
	FailUntag atomic.Bool
}

// NewTagger wraps inner.
func NewTagger(inner dom.Tagger) *Tagger {
	return &Tagger{Inner: inner}
}

func (t *Tagger) Tagged(n dom.Node) bool { return t.Inner.Tagged(n) }

func (t *Tagger) Tag(n dom.Node) error {
	if t.FailTag.Load() {
		return ErrInjected
	}
	t.Writes.Add(1)
	return t.Inner.Tag(n)
}

func (t *Tagger) Untag(n dom.Node) error {
	if t.FailUntag.Load() {
		return ErrInjected
	}
	t.Writes.Add(1)
	return t.Inner.Untag(n)
}

func (t *Tagger) TaggedNodes() []dom.Node { return t.Inner.TaggedNodes() }
