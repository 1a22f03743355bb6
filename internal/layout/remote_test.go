package layout

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRemoteStore(t *testing.T) {
	var gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.Method+" "+r.URL.EscapedPath())
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/layouts":
			_, _ = w.Write([]byte(`[{"id":"a","name":"A","panels":{}}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/layouts/a b":
			_, _ = w.Write([]byte(`{"id":"a b","name":"A B","panels":{"editor":{"width":10,"height":20,"left":0,"top":0,"position":"absolute","display":"","zIndex":""}}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/layouts":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var l Layout
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&l))
			l.Name = strings.ToUpper(l.Name)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(l)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/layouts/a":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "layout not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := NewHTTPRemoteStore(srv.URL+"/api/", WithHTTPClient(srv.Client()))
	ctx := t.Context()

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	l, err := s.Get(ctx, "a b")
	require.NoError(t, err)
	assert.Equal(t, 10.0, l.Panels["editor"].Width)

	saved, err := s.Save(ctx, Layout{ID: "n", Name: "new", Panels: map[string]PanelGeometry{}})
	require.NoError(t, err)
	assert.Equal(t, "NEW", saved.Name)

	require.NoError(t, s.Delete(ctx, "a"))

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "layout not found", se.Body)

	assert.Equal(t, []string{
		"GET /api/layouts",
		"GET /api/layouts/a%20b",
		"POST /api/layouts",
		"DELETE /api/layouts/a",
		"GET /api/layouts/missing",
	}, gotPaths)
}

func TestHTTPRemoteStore_ServerErrorIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPRemoteStore(srv.URL)
	_, err := s.Get(t.Context(), "a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestHTTPRemoteStore_UnreachableFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	local := NewMemoryLocalStore()
	s := NewTieredStore(NewHTTPRemoteStore(url), local, discardLogger())
	saved, tier, err := s.Save(t.Context(), Layout{ID: "foo", Name: "Foo"})
	require.NoError(t, err)
	assert.Equal(t, TierLocal, tier)
	assert.Equal(t, "foo", saved.ID)

	_, ok, err := local.Get(LocalKey("foo"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHTTPRemoteStore_EmptyBodyFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	remote := NewHTTPRemoteStore(srv.URL)
	_, err := remote.Get(t.Context(), "a")
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_, err = remote.List(t.Context())
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	local := NewMemoryLocalStore()
	require.NoError(t, local.Set(LocalKey("a"), []byte(`{"id":"a","name":"Local","panels":{}}`)))
	s := NewTieredStore(remote, local, discardLogger())
	l, tier, ok := s.Get(t.Context(), "a")
	require.True(t, ok)
	assert.Equal(t, TierLocal, tier)
	assert.Equal(t, "Local", l.Name)
}
