package htmldoc

import (
	"github.com/hazyhaar/feedhider/dom"
)

// AttrTagger records tags as the dom.MarkerAttr attribute on the node itself,
// so the marker travels with the rendered HTML.
type AttrTagger struct {
	doc *Document
}

// Tagger returns the attribute tagger bound to d.
func (d *Document) Tagger() *AttrTagger {
	return &AttrTagger{doc: d}
}

func (t *AttrTagger) Tagged(n dom.Node) bool {
	v, ok := n.Attr(dom.MarkerAttr)
	return ok && v == "true"
}

func (t *AttrTagger) Tag(n dom.Node) error {
	el, err := t.doc.own(n)
	if err != nil {
		return err
	}
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	el.sel.SetAttr(dom.MarkerAttr, "true")
	return nil
}

func (t *AttrTagger) Untag(n dom.Node) error {
	el, err := t.doc.own(n)
	if err != nil {
		return err
	}
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	el.sel.RemoveAttr(dom.MarkerAttr)
	return nil
}

func (t *AttrTagger) TaggedNodes() []dom.Node {
	return t.doc.QueryAll(`[` + dom.MarkerAttr + `="true"]`)
}
