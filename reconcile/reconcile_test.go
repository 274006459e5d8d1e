package reconcile

import (
	"errors"
	"testing"

	"github.com/hazyhaar/feedhider/dom"
	"github.com/hazyhaar/feedhider/dom/domtest"
	"github.com/hazyhaar/feedhider/htmldoc"
)

const page = `<div id="feed">
<div class="item" id="a" style="color: red"></div>
<div class="item" id="b"></div>
<div class="item" id="c" style="display: none"></div>
</div>`

type fixture struct {
	html   *htmldoc.Document
	doc    *domtest.Document
	tagger *domtest.Tagger
	rec    *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h, err := htmldoc.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{html: h, doc: domtest.NewDocument(h), tagger: domtest.NewTagger(h.Tagger())}
	f.rec = New(f.doc, f.tagger)
	return f
}

func (f *fixture) node(t *testing.T, id string) dom.Node {
	t.Helper()
	ns := f.html.QueryAll("#" + id)
	if len(ns) != 1 {
		t.Fatalf("node %s not found", id)
	}
	return ns[0]
}

// checkInvariant asserts tag present iff hidden, for engine-owned items.
func (f *fixture) checkInvariant(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		n := f.node(t, id)
		if f.rec.Hidden(n) != f.html.IsHidden(n) {
			t.Errorf("%s: tagged=%v hidden=%v", id, f.rec.Hidden(n), f.html.IsHidden(n))
		}
	}
}

func TestHide_Idempotent(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "a")

	changed, err := f.rec.Hide(a)
	if err != nil || !changed {
		t.Fatalf("first hide: changed=%v err=%v", changed, err)
	}
	writes := f.doc.Writes.Load() + f.tagger.Writes.Load()

	changed, err = f.rec.Hide(a)
	if err != nil || changed {
		t.Fatalf("second hide: changed=%v err=%v", changed, err)
	}
	if got := f.doc.Writes.Load() + f.tagger.Writes.Load(); got != writes {
		t.Errorf("second hide wrote: %d writes, want %d", got, writes)
	}
	f.checkInvariant(t, "a", "b")
}

func TestRestoreAll_OnlyTagged(t *testing.T) {
	f := newFixture(t)
	f.rec.Hide(f.node(t, "a"))
	f.rec.Hide(f.node(t, "b"))

	restored, err := f.rec.RestoreAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(restored) != 2 {
		t.Fatalf("restored: got %d, want 2", len(restored))
	}
	f.checkInvariant(t, "a", "b")

	a := f.node(t, "a")
	if style, _ := a.Attr("style"); style != "color: red;" {
		t.Errorf("style of a: got %q, want prior declarations kept", style)
	}
	// c was hidden by the page itself and must stay hidden.
	if !f.html.IsHidden(f.node(t, "c")) {
		t.Error("restore touched an item feedhider did not hide")
	}

	restored, _ = f.rec.RestoreAll()
	if len(restored) != 0 {
		t.Errorf("second restore: got %d, want 0", len(restored))
	}
}

func TestHide_TagFailureRevertsVisibility(t *testing.T) {
	f := newFixture(t)
	f.tagger.FailTag.Store(true)

	b := f.node(t, "b")
	changed, err := f.rec.Hide(b)
	if !errors.Is(err, domtest.ErrInjected) {
		t.Fatalf("err: got %v, want injected", err)
	}
	if changed {
		t.Error("changed: got true on failure")
	}
	if f.html.IsHidden(b) {
		t.Error("item left hidden without a tag")
	}
}

func TestHide_StyleFailureLeavesItemUntouched(t *testing.T) {
	f := newFixture(t)
	f.doc.FailWrites.Store(true)

	b := f.node(t, "b")
	if _, err := f.rec.Hide(b); err == nil {
		t.Fatal("expected error")
	}
	f.checkInvariant(t, "b")
	if f.tagger.Writes.Load() != 0 {
		t.Error("tag written although hide failed")
	}
}

func TestRestoreAll_FailureKeepsTag(t *testing.T) {
	f := newFixture(t)
	f.rec.Hide(f.node(t, "a"))

	f.doc.FailWrites.Store(true)
	restored, err := f.rec.RestoreAll()
	if err == nil {
		t.Fatal("expected error")
	}
	if len(restored) != 0 {
		t.Errorf("restored: got %d, want 0", len(restored))
	}
	f.checkInvariant(t, "a")

	f.doc.FailWrites.Store(false)
	f.tagger.FailUntag.Store(true)
	if _, err := f.rec.RestoreAll(); err == nil {
		t.Fatal("expected untag error")
	}
	f.checkInvariant(t, "a")
	if !f.rec.Hidden(f.node(t, "a")) {
		t.Error("item lost its tag after a failed untag")
	}
}

func TestMemTaggerWorksAsMarker(t *testing.T) {
	h, _ := htmldoc.ParseString(page)
	mem := dom.NewMemTagger()
	rec := New(h, mem)

	a := h.QueryAll("#a")[0]
	rec.Hide(a)
	if mem.Len() != 1 {
		t.Fatalf("Len: got %d", mem.Len())
	}
	// A fresh view of the same node resolves to the same tag.
	if !rec.Hidden(h.QueryAll("#a")[0]) {
		t.Error("tag not found through a new node view")
	}
	if _, err := rec.RestoreAll(); err != nil {
		t.Fatal(err)
	}
	if mem.Len() != 0 || h.IsHidden(a) {
		t.Error("restore incomplete")
	}
}
