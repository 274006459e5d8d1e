package shield

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chain(h http.Handler, mws []func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestDefaultAPIStack(t *testing.T) {
	var method, traceID string
	var logged bool
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		traceID = GetTraceID(r.Context())
		logged = GetLogger(r.Context()) != slog.Default()
		w.WriteHeader(http.StatusOK)
	}), DefaultAPIStack(slog.New(slog.NewTextHandler(io.Discard, nil))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/api/blocklist", nil))

	if method != http.MethodGet {
		t.Errorf("method: got %s, want GET", method)
	}
	if traceID == "" || rec.Header().Get("X-Trace-ID") != traceID {
		t.Errorf("trace id: ctx=%q header=%q", traceID, rec.Header().Get("X-Trace-ID"))
	}
	if !logged {
		t.Error("per-request logger not set")
	}
	for _, hdr := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if rec.Header().Get(hdr) == "" {
			t.Errorf("missing header %s", hdr)
		}
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"way too long"}`)))
	if readErr == nil {
		t.Error("oversized body: expected read error")
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if readErr != nil {
		t.Errorf("small body: %v", readErr)
	}
}

func TestGetLogger_Default(t *testing.T) {
	if GetLogger(t.Context()) != slog.Default() {
		t.Error("want slog.Default without middleware")
	}
}
