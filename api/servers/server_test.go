package servers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/quorum-vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func newTestServer(t *testing.T, pprof bool) *Server {
	t.Helper()
	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		EnablePprof:              pprof,
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, nil, pingHandler{})
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_HealthAndDrain(t *testing.T) {
	srv := newTestServer(t, false)

	resp := get(t, srv, "/livez")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"alive"}`, resp.Body.String())

	resp = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = get(t, srv, "/drain")
	assert.JSONEq(t, `{"status":"draining"}`, resp.Body.String())
	assert.False(t, srv.IsReady())

	resp = get(t, srv, "/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, resp.Body.String())

	resp = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	resp = get(t, srv, "/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, resp.Body.String())
	assert.True(t, srv.IsReady())

	resp = get(t, srv, "/undrain")
	assert.JSONEq(t, `{"status":"already ready"}`, resp.Body.String())
}

func TestServer_MountsHandlers(t *testing.T) {
	srv := newTestServer(t, false)

	assert.Equal(t, http.StatusTeapot, get(t, srv, "/api/ping").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/debug/pprof/").Code)
}

func TestServer_Pprof(t *testing.T) {
	srv := newTestServer(t, true)
	assert.Equal(t, http.StatusOK, get(t, srv, "/debug/pprof/").Code)
}
