// CLAUDE:SUMMARY chi routes for blocklist management: list, add, remove, read and toggle the enabled flag.
package blocklist

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// RegisterHTTP mounts the management API on r:
//
//	GET    /api/blocklist          list entries, newest first
//	POST   /api/blocklist          {"name": "..."}
//	DELETE /api/blocklist/{name}   exact-name removal
//	GET    /api/blocking           {"enabled": bool}
//	PUT    /api/blocking           {"enabled": bool}
func (m *Manager) RegisterHTTP(r chi.Router) {
	r.Route("/api/blocklist", func(r chi.Router) {
		r.Get("/", m.handleList)
		r.Post("/", m.handleAdd)
		r.Delete("/{name}", m.handleRemove)
	})
	r.Get("/api/blocking", m.handleGetEnabled)
	r.Put("/api/blocking", m.handleSetEnabled)
}

func (m *Manager) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := m.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = List{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (m *Manager) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e, err := m.Add(r.Context(), req.Name)
	switch {
	case errors.Is(err, ErrEmptyName):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ErrDuplicate):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusCreated, e)
	}
}

func (m *Manager) handleRemove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// chi routes on RawPath when it is set (an escaped "/" in the name);
	// only then is the parameter still escaped.
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	err := m.Remove(r.Context(), name)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (m *Manager) handleGetEnabled(w http.ResponseWriter, r *http.Request) {
	enabled, err := m.Enabled(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (m *Manager) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, errors.New("enabled is required"))
		return
	}
	if err := m.SetEnabled(r.Context(), *req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
