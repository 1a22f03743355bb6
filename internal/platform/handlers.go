package platform

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"autopilot/internal/layout"
	"autopilot/internal/messages"
	components "autopilot/ui/components"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go/jetstream"
)

// maxLayoutBody caps request bodies on the layout endpoints.
const maxLayoutBody = 1 << 20

// Patch media types accepted by PATCH /api/layouts/{id}.
const (
	MergePatchContentType = "application/merge-patch+json"
	JSONPatchContentType  = "application/json-patch+json"
)

// Health returns 200 OK.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListLayouts answers GET /api/layouts.
func ListLayouts(repo *LayoutRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context())
		if err != nil {
			slog.Error("ListLayouts", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetLayout answers GET /api/layouts/{id}.
func GetLayout(repo *LayoutRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := repo.Get(r.Context(), layoutID(r))
		if err != nil {
			writeRepoError(w, "GetLayout", err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// SaveLayout answers POST /api/layouts with the stored record.
func SaveLayout(repo *LayoutRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLayoutBody))
		if err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		l, err := DecodeLayout(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		saved, err := repo.Save(r.Context(), l, middleware.GetReqID(r.Context()))
		if err != nil {
			writeRepoError(w, "SaveLayout", err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// PatchLayout answers PATCH /api/layouts/{id}. The Content-Type selects a JSON
// patch; anything else is treated as a merge patch.
func PatchLayout(repo *LayoutRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLayoutBody))
		if err != nil || len(raw) == 0 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		typ := messages.PatchMerge
		if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == JSONPatchContentType {
			typ = messages.PatchJSONPatch
		}
		l, err := repo.Patch(r.Context(), layoutID(r), raw, typ, middleware.GetReqID(r.Context()))
		if err != nil {
			writeRepoError(w, "PatchLayout", err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// DeleteLayout answers DELETE /api/layouts/{id}.
func DeleteLayout(repo *LayoutRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Delete(r.Context(), layoutID(r), middleware.GetReqID(r.Context())); err != nil {
			writeRepoError(w, "DeleteLayout", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PreviewLayout renders the stored panels of one layout as HTML.
func PreviewLayout(repo *LayoutRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := repo.Get(r.Context(), layoutID(r))
		if err != nil {
			writeRepoError(w, "PreviewLayout", err)
			return
		}
		templ.Handler(components.LayoutPreview(l)).ServeHTTP(w, r)
	}
}

// layoutID returns the decoded {id} route parameter. chi matches on
// r.URL.RawPath when it is set and on the already decoded r.URL.Path
// otherwise, so only the first case is unescaped.
func layoutID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

func writeRepoError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, layout.ErrNotFound):
		http.Error(w, "layout not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidLayout):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, jetstream.ErrKeyExists):
		http.Error(w, "layout changed concurrently", http.StatusConflict)
	default:
		slog.Error(op, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "err", err)
	}
}
