// Package dom defines the capabilities feedhider needs from an observed
// content tree: querying items and their parts, reading displayed text and
// attributes, toggling visibility, and tagging nodes with engine-owned state.
//
// Adapters live in their own packages: htmldoc wraps a parsed static document,
// rodpage wraps a live Chrome tab.
package dom

import (
	"context"
	"time"
)

// MarkerAttr is the attribute used by attribute-based taggers to record that
// a node is currently hidden by feedhider.
const MarkerAttr = "data-feedhider-hidden"

// DisplayAttr holds the inline display value a node had before feedhider
// hid it. Documents write it on hide and consume it on show, so restoring
// puts back exactly what was there. An empty value means no inline display.
const DisplayAttr = "data-feedhider-display"

// Node is a view over one element of the observed tree. Lookups that fail or
// find nothing return empty values, never errors.
type Node interface {
	// Key identifies the node for as long as it stays attached.
	Key() string
	// Text is the displayed text of the node and its descendants.
	Text() string
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)
	// QueryAll returns descendants matching a CSS selector, in document order.
	QueryAll(selector string) []Node
}

// Document is the tree root the engine enumerates and restyles.
type Document interface {
	QueryAll(selector string) []Node
	SetHidden(n Node, hidden bool) error
}

// Tagger attaches engine-owned boolean state to nodes.
type Tagger interface {
	Tagged(n Node) bool
	Tag(n Node) error
	Untag(n Node) error
	// TaggedNodes returns every node currently carrying the tag.
	TaggedNodes() []Node
}

// Batch reports one delivery of tree mutations. Only additions matter to
// the engine; an empty batch is ignored.
type Batch struct {
	Added int
	At    time.Time
}

// Observable is implemented by documents that report mutations. The channel
// is closed when ctx is done.
type Observable interface {
	Mutations(ctx context.Context) <-chan Batch
}
