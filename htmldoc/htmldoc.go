// CLAUDE:SUMMARY goquery-backed dom.Document over a parsed HTML tree, with inline-style hiding, attribute tags and insertion events.
// Package htmldoc adapts a parsed HTML document to the dom capabilities.
//
// It serves the offline filter (hide blocked items in a saved page and
// render the result) and gives tests a real tree with real selectors.
// Appending markup publishes a dom.Batch, so a Document can drive the
// engine exactly like a live page does.
package htmldoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/feedhider/dom"
)

// ErrForeignNode is returned when a node from another document is passed in.
var ErrForeignNode = errors.New("htmldoc: node does not belong to this document")

// Document is a mutable HTML tree. All reads and writes are serialised
// through one mutex.
type Document struct {
	mu   sync.Mutex
	doc  *goquery.Document
	subs map[chan dom.Batch]struct{}
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{doc: doc, subs: make(map[chan dom.Batch]struct{})}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("htmldoc: render: %w", err)
		}
	}
	return nil
}

// QueryAll returns elements matching selector anywhere in the document.
// An invalid selector matches nothing.
func (d *Document) QueryAll(selector string) []dom.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(d.doc.Find(selector))
}

// SetHidden toggles the inline display declaration of n. The prior display
// value is kept in dom.DisplayAttr while hidden and put back on show.
func (d *Document) SetHidden(n dom.Node, hidden bool) error {
	el, err := d.own(n)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	style, _ := el.sel.Attr("style")
	if hidden {
		if _, saved := el.sel.Attr(dom.DisplayAttr); !saved {
			prior, _ := displayValue(style)
			el.sel.SetAttr(dom.DisplayAttr, prior)
		}
		style = setDisplayNone(style)
	} else {
		prior, saved := el.sel.Attr(dom.DisplayAttr)
		style = setDisplay(style, prior)
		if saved {
			el.sel.RemoveAttr(dom.DisplayAttr)
		}
	}
	if style == "" {
		el.sel.RemoveAttr("style")
	} else {
		el.sel.SetAttr("style", style)
	}
	return nil
}

// IsHidden reports whether n currently has an inline display:none.
func (d *Document) IsHidden(n dom.Node) bool {
	el, err := d.own(n)
	if err != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	style, _ := el.sel.Attr("style")
	return hasDisplayNone(style)
}

// Append parses markup and appends it to every element matching
// parentSelector, then notifies subscribers of the added nodes.
func (d *Document) Append(parentSelector, markup string) (int, error) {
	d.mu.Lock()
	parents := d.doc.Find(parentSelector)
	if parents.Length() == 0 {
		d.mu.Unlock()
		return 0, fmt.Errorf("htmldoc: append: no element matches %q", parentSelector)
	}
	before := parents.Contents().Length()
	parents.AppendHtml(markup)
	added := parents.Contents().Length() - before
	d.mu.Unlock()

	d.publish(dom.Batch{Added: added, At: time.Now()})
	return added, nil
}

// Remove detaches every element matching selector and notifies subscribers
// with an empty batch.
func (d *Document) Remove(selector string) int {
	d.mu.Lock()
	sel := d.doc.Find(selector)
	n := sel.Length()
	sel.Remove()
	d.mu.Unlock()

	d.publish(dom.Batch{At: time.Now()})
	return n
}

// Mutations subscribes to tree changes until ctx is done.
func (d *Document) Mutations(ctx context.Context) <-chan dom.Batch {
	ch := make(chan dom.Batch, 16)
	d.mu.Lock()
	d.subs[ch] = struct{}{}
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		delete(d.subs, ch)
		d.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (d *Document) publish(b dom.Batch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := range d.subs {
		// Subscribers drain promptly; a full buffer already holds a
		// pending notification.
		select {
		case ch <- b:
		default:
		}
	}
}

func (d *Document) wrap(sel *goquery.Selection) []dom.Node {
	if sel.Length() == 0 {
		return nil
	}
	out := make([]dom.Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{doc: d, sel: s, raw: s.Nodes[0]})
	})
	return out
}

func (d *Document) own(n dom.Node) (*element, error) {
	el, ok := n.(*element)
	if !ok || el.doc != d {
		return nil, ErrForeignNode
	}
	return el, nil
}

// element is a single node of a Document.
type element struct {
	doc *Document
	sel *goquery.Selection
	raw *html.Node
}

func (e *element) Key() string { return fmt.Sprintf("%p", e.raw) }

// Text approximates innerText: runs of whitespace collapse to one space.
func (e *element) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return strings.Join(strings.Fields(e.sel.Text()), " ")
}

func (e *element) Attr(name string) (string, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.sel.Attr(name)
}

func (e *element) QueryAll(selector string) []dom.Node {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.wrap(e.sel.Find(selector))
}
