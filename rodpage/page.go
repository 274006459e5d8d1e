// CLAUDE:SUMMARY dom.Document, dom.Tagger and dom.Observable over a live Chrome tab driven by go-rod.
// Package rodpage adapts a live browser tab to the dom capabilities.
//
// Items are real page elements reached over the DevTools protocol.
// Visibility is the element's inline display style, the hidden tag is
// the dom.MarkerAttr attribute, and tree mutations come from a
// MutationObserver injected into every document the tab loads.
//
// Protocol errors on reads degrade to empty results: a node that vanished
// between query and read simply has no identity.
package rodpage

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/feedhider/dom"
)

// ErrForeignNode is returned when a node from another page is passed in.
var ErrForeignNode = errors.New("rodpage: node does not belong to this page")

// Page is a live tab. The underlying *rod.Page may be swapped when the
// browser is recycled; nodes from the previous tab then fail their writes.
type Page struct {
	logger *slog.Logger

	mu   sync.RWMutex
	page *rod.Page

	subMu sync.Mutex
	subs  map[chan dom.Batch]struct{}
}

// New wraps an open tab. Call Observe to start reporting mutations.
func New(page *rod.Page, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{logger: logger, page: page, subs: make(map[chan dom.Batch]struct{})}
}

func (p *Page) current() *rod.Page {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.page
}

// QueryAll returns the elements matching selector in the whole document.
func (p *Page) QueryAll(selector string) []dom.Node {
	page := p.current()
	els, err := page.Elements(selector)
	if err != nil {
		p.logger.Debug("rodpage: query failed", "selector", selector, "error", err)
		return nil
	}
	return p.wrap(page, els)
}

// hideJS saves the inline display value in attr before hiding and puts it
// back on show.
const hideJS = `(hidden, attr) => {
	if (hidden) {
		if (!this.hasAttribute(attr)) this.setAttribute(attr, this.style.display);
		this.style.display = "none";
	} else {
		this.style.display = this.getAttribute(attr) || "";
		this.removeAttribute(attr);
	}
}`

// SetHidden writes the inline display style of n.
func (p *Page) SetHidden(n dom.Node, hidden bool) error {
	el, err := p.own(n)
	if err != nil {
		return err
	}
	_, err = el.el.Eval(hideJS, hidden, dom.DisplayAttr)
	if err != nil {
		return fmt.Errorf("rodpage: set hidden=%v: %w", hidden, err)
	}
	return nil
}

// Tagged reports whether n carries the hidden tag.
func (p *Page) Tagged(n dom.Node) bool {
	v, ok := n.Attr(dom.MarkerAttr)
	return ok && v == "true"
}

// Tag sets the hidden tag on n.
func (p *Page) Tag(n dom.Node) error {
	return p.attr(n, `(name) => this.setAttribute(name, "true")`)
}

// Untag removes the hidden tag from n.
func (p *Page) Untag(n dom.Node) error {
	return p.attr(n, `(name) => this.removeAttribute(name)`)
}

// TaggedNodes returns every element carrying the hidden tag.
func (p *Page) TaggedNodes() []dom.Node {
	return p.QueryAll(`[` + dom.MarkerAttr + `="true"]`)
}

func (p *Page) attr(n dom.Node, js string) error {
	el, err := p.own(n)
	if err != nil {
		return err
	}
	if _, err := el.el.Eval(js, dom.MarkerAttr); err != nil {
		return fmt.Errorf("rodpage: marker: %w", err)
	}
	return nil
}

func (p *Page) wrap(page *rod.Page, els rod.Elements) []dom.Node {
	if len(els) == 0 {
		return nil
	}
	out := make([]dom.Node, 0, len(els))
	for _, el := range els {
		out = append(out, &element{p: p, page: page, el: el})
	}
	return out
}

func (p *Page) own(n dom.Node) (*element, error) {
	el, ok := n.(*element)
	if !ok || el.p != p {
		return nil, ErrForeignNode
	}
	return el, nil
}

// element is one remote element. Its key is the backend node id, which
// stays the same across queries for the lifetime of the node.
type element struct {
	p    *Page
	page *rod.Page
	el   *rod.Element

	once sync.Once
	key  string
}

func (e *element) Key() string {
	e.once.Do(func() {
		node, err := e.el.Describe(0, false)
		if err != nil {
			e.key = string(e.el.Object.ObjectID)
			return
		}
		e.key = strconv.Itoa(int(node.BackendNodeID))
	})
	return e.key
}

func (e *element) Text() string {
	s, err := e.el.Text()
	if err != nil {
		e.p.logger.Debug("rodpage: text failed", "error", err)
		return ""
	}
	return s
}

func (e *element) Attr(name string) (string, bool) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (e *element) QueryAll(selector string) []dom.Node {
	els, err := e.el.Elements(selector)
	if err != nil {
		e.p.logger.Debug("rodpage: query failed", "selector", selector, "error", err)
		return nil
	}
	return e.p.wrap(e.page, els)
}

var _ interface {
	dom.Document
	dom.Tagger
	dom.Observable
} = (*Page)(nil)
