package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/feedhider/blocklist"
	"github.com/hazyhaar/feedhider/engine"
	"github.com/hazyhaar/feedhider/htmldoc"
	"github.com/hazyhaar/feedhider/kvstore"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestManageCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "feedhider.db")
	store := "--store=" + db

	out, err := execute(t, "add", store, "Foo Official", "<b>Bar</b> TV")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "blocked Foo Official") || !strings.Contains(out, "blocked Bar TV") {
		t.Errorf("add output: %q", out)
	}

	if _, err := execute(t, "add", store, "foo official"); err == nil {
		t.Error("duplicate add: expected error")
	}

	out, err = execute(t, "list", store)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "blocking enabled, 2 channel(s)") {
		t.Errorf("list header: %q", out)
	}
	if strings.Index(out, "Bar TV") > strings.Index(out, "Foo Official") {
		t.Errorf("list not newest first: %q", out)
	}

	if _, err := execute(t, "disable", store); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "rm", store, "Bar TV"); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "remove", store, "Bar TV"); err == nil {
		t.Error("second remove: expected error")
	}

	out, _ = execute(t, "list", store)
	if !strings.HasPrefix(out, "blocking disabled, 1 channel(s)") {
		t.Errorf("list after changes: %q", out)
	}
}

const savedPage = `<html><head></head><body><div id="contents">` +
	`<ytd-rich-item-renderer id="a"><a href="/@FooOfficial">Foo Official</a></ytd-rich-item-renderer>` +
	`<ytd-rich-item-renderer id="b"><a href="/@bar">Bar</a></ytd-rich-item-renderer>` +
	`</div></body></html>`

func TestFilterCommand_BlockFlag(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.html")
	if err := os.WriteFile(in, []byte(savedPage), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "clean.html")

	if _, err := execute(t, "filter", "--driver=memory", "--block=foo", in, "-o", outPath); err != nil {
		t.Fatalf("filter: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	html := string(got)
	if !strings.Contains(html, `<ytd-rich-item-renderer id="a" style="display: none;" data-feedhider-display="" data-feedhider-hidden="true">`) {
		t.Errorf("item a not hidden:\n%s", html)
	}
	if strings.Count(html, "data-feedhider-hidden") != 1 {
		t.Errorf("unexpected markers:\n%s", html)
	}

	// Filtering the output again changes nothing.
	again := filepath.Join(dir, "again.html")
	if _, err := execute(t, "filter", "--driver=memory", "--block=foo", outPath, "-o", again); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(again)
	if string(second) != html {
		t.Errorf("second filter changed the page:\n%s", second)
	}
}

func TestFilterCommand_DisabledStoreRevealsItems(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "feedhider.db")
	hidden := strings.Replace(savedPage, `id="a"`, `id="a" style="display: none;" data-feedhider-hidden="true"`, 1)
	in := filepath.Join(dir, "page.html")
	os.WriteFile(in, []byte(hidden), 0o644)

	if _, err := execute(t, "disable", "--store="+db); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "filter", "--store="+db, in)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "data-feedhider-hidden") || strings.Contains(out, "display: none") {
		t.Errorf("disabled filter kept items hidden:\n%s", out)
	}
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify(engine.Trigger) { c.n++ }

func TestRouter(t *testing.T) {
	mgr := blocklist.NewManager(kvstore.NewMemory())
	eng := &countingNotifier{}
	r := newRouter(mgr, eng, nil, quietLogger())

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/blocklist", http.StatusOK},
		{http.MethodGet, "/api/blocking", http.StatusOK},
		{http.MethodPost, "/api/reconcile", http.StatusAccepted},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: got %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
	if eng.n != 1 {
		t.Errorf("Notify calls: got %d, want 1", eng.n)
	}
}

type fakeRecycler struct {
	calls int
	err   error
}

func (f *fakeRecycler) Recycle(context.Context) error {
	f.calls++
	return f.err
}

func TestRouter_BrowserRecycle(t *testing.T) {
	mgr := blocklist.NewManager(kvstore.NewMemory())

	rec := httptest.NewRecorder()
	newRouter(mgr, &countingNotifier{}, nil, quietLogger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/browser/recycle", nil))
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("without a browser: got %d, want 404 or 405", rec.Code)
	}

	ok := &fakeRecycler{}
	rec = httptest.NewRecorder()
	newRouter(mgr, &countingNotifier{}, ok, quietLogger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/browser/recycle", nil))
	if rec.Code != http.StatusNoContent || ok.calls != 1 {
		t.Fatalf("recycle: got %d, calls %d", rec.Code, ok.calls)
	}

	failing := &fakeRecycler{err: errors.New("chrome gone")}
	rec = httptest.NewRecorder()
	newRouter(mgr, &countingNotifier{}, failing, quietLogger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/browser/recycle", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("failing recycle: got %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chrome gone") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestMCPServerRegistersTools(t *testing.T) {
	srv := newMCPServer(blocklist.NewManager(kvstore.NewMemory()))
	if srv == nil {
		t.Fatal("nil server")
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouter_SecurityHeaders(t *testing.T) {
	r := newRouter(blocklist.NewManager(kvstore.NewMemory()), &countingNotifier{}, nil, quietLogger())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("HEAD /health: got %d", rec.Code)
	}
	if rec.Header().Get("X-Trace-ID") == "" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers: %v", rec.Header())
	}
}

type closeFailWriter struct {
	bytes.Buffer
	closed bool
}

func (w *closeFailWriter) Close() error {
	w.closed = true
	return errors.New("disk full")
}

func TestRenderAndClose_ReportsCloseError(t *testing.T) {
	doc, err := htmldoc.ParseString(`<p>hello</p>`)
	if err != nil {
		t.Fatal(err)
	}
	w := &closeFailWriter{}
	err = renderAndClose(doc, w)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want close error", err)
	}
	if !w.closed {
		t.Fatal("writer not closed")
	}
	if !strings.Contains(w.String(), "hello") {
		t.Fatalf("nothing rendered: %q", w.String())
	}
}
