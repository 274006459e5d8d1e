package blocklist

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	m, _ := testManager(t)
	r := chi.NewRouter()
	m.RegisterHTTP(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHTTP_AddListRemove(t *testing.T) {
	srv := testServer(t)

	if resp := do(t, http.MethodPost, srv.URL+"/api/blocklist", `{"name":"Foo Channel"}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add: status %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, srv.URL+"/api/blocklist", `{"name":"foo channel"}`); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate: status %d, want 409", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, srv.URL+"/api/blocklist", `{"name":""}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty: status %d, want 400", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, srv.URL+"/api/blocklist", "")
	var list List
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Foo Channel" {
		t.Fatalf("list: got %+v", list)
	}

	if resp := do(t, http.MethodDelete, srv.URL+"/api/blocklist/Foo%20Channel", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("remove: status %d, want 204", resp.StatusCode)
	}
	if resp := do(t, http.MethodDelete, srv.URL+"/api/blocklist/Foo%20Channel", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("remove again: status %d, want 404", resp.StatusCode)
	}
}

func TestHTTP_Blocking(t *testing.T) {
	srv := testServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/blocking", "")
	var got map[string]bool
	json.NewDecoder(resp.Body).Decode(&got)
	if !got["enabled"] {
		t.Error("default: got disabled")
	}

	if resp := do(t, http.MethodPut, srv.URL+"/api/blocking", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing flag: status %d, want 400", resp.StatusCode)
	}
	if resp := do(t, http.MethodPut, srv.URL+"/api/blocking", `{"enabled":false}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("disable: status %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/blocking", "")
	got = nil
	json.NewDecoder(resp.Body).Decode(&got)
	if got["enabled"] {
		t.Error("after disable: got enabled")
	}
}

func TestHTTP_RemoveEscapedNames(t *testing.T) {
	tests := []struct {
		name, path string
	}{
		{"100% Music", "/api/blocklist/100%25%20Music"},
		{"AC/DC", "/api/blocklist/AC%2FDC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t)
			body, _ := json.Marshal(map[string]string{"name": tt.name})
			if resp := do(t, http.MethodPost, srv.URL+"/api/blocklist", string(body)); resp.StatusCode != http.StatusCreated {
				t.Fatalf("add: status %d", resp.StatusCode)
			}
			if resp := do(t, http.MethodDelete, srv.URL+tt.path, ""); resp.StatusCode != http.StatusNoContent {
				t.Fatalf("remove %s: status %d, want 204", tt.path, resp.StatusCode)
			}
		})
	}
}
