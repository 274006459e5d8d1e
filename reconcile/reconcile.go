// Package reconcile applies hide and restore transitions to items.
//
// An item is either visible or hidden by feedhider. The tag set through
// dom.Tagger is present exactly when the item is hidden by feedhider, so
// items hidden by anyone else are never touched and restored items never
// keep a tag.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/feedhider/dom"
)

// Reconciler owns every visibility and tag write made by feedhider.
type Reconciler struct {
	doc    dom.Document
	tagger dom.Tagger
}

// New creates a Reconciler.
func New(doc dom.Document, tagger dom.Tagger) *Reconciler {
	return &Reconciler{doc: doc, tagger: tagger}
}

// Hidden reports whether item is hidden by feedhider.
func (r *Reconciler) Hidden(item dom.Node) bool {
	return r.tagger.Tagged(item)
}

// Hide moves item from visible to hidden. It reports false without writing
// anything when the item already carries the tag.
func (r *Reconciler) Hide(item dom.Node) (bool, error) {
	if r.tagger.Tagged(item) {
		return false, nil
	}
	if err := r.doc.SetHidden(item, true); err != nil {
		return false, fmt.Errorf("reconcile: hide %s: %w", item.Key(), err)
	}
	if err := r.tagger.Tag(item); err != nil {
		// Untagged but hidden would be unrecoverable: undo the hide.
		if uerr := r.doc.SetHidden(item, false); uerr != nil {
			return false, fmt.Errorf("reconcile: tag %s: %w", item.Key(), errors.Join(err, uerr))
		}
		return false, fmt.Errorf("reconcile: tag %s: %w", item.Key(), err)
	}
	return true, nil
}

// Restore moves one tagged item back to visible.
func (r *Reconciler) Restore(item dom.Node) error {
	if err := r.doc.SetHidden(item, false); err != nil {
		return fmt.Errorf("reconcile: show %s: %w", item.Key(), err)
	}
	if err := r.tagger.Untag(item); err != nil {
		if herr := r.doc.SetHidden(item, true); herr != nil {
			return fmt.Errorf("reconcile: untag %s: %w", item.Key(), errors.Join(err, herr))
		}
		return fmt.Errorf("reconcile: untag %s: %w", item.Key(), err)
	}
	return nil
}

// RestoreAll restores every tagged item. Only the tagged subset is visited.
// Items that fail keep their tag and stay hidden; their errors are joined.
func (r *Reconciler) RestoreAll() ([]dom.Node, error) {
	var restored []dom.Node
	var errs []error
	for _, item := range r.tagger.TaggedNodes() {
		if err := r.Restore(item); err != nil {
			errs = append(errs, err)
			continue
		}
		restored = append(restored, item)
	}
	return restored, errors.Join(errs...)
}
