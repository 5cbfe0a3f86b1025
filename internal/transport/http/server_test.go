package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/internal/bootstrap"
	"paperchat/internal/config"
)

func newTestApp(t *testing.T, ollamaURL string) *bootstrap.App {
	t.Helper()
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	cfg.App.GinMode = gin.TestMode
	cfg.Store.SnapshotPath = filepath.Join(t.TempDir(), "store.json")
	cfg.LLM.BaseURL = ollamaURL

	app, err := bootstrap.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRouter_ServesRootAndAPIPrefix(t *testing.T) {
	router := NewRouter(newTestApp(t, "http://127.0.0.1:1"))

	for _, path := range []string{"/papers", "/api/papers"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"papers":[]}`, rec.Body.String(), path)
	}
}

func TestRouter_ChatUnknownDocument(t *testing.T) {
	router := NewRouter(newTestApp(t, "http://127.0.0.1:1"))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"input":"q","documentId":"missing"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HistoryDisabledByDefault(t *testing.T) {
	router := NewRouter(newTestApp(t, "http://127.0.0.1:1"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?documentId=x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_MetricsAndHealth(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer ollama.Close()
	router := NewRouter(newTestApp(t, ollama.URL))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"documents":0`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paperchat_documents 0")
	assert.Contains(t, rec.Body.String(), "paperchat_http_requests_total")
}

func TestRouter_HealthReportsBackendDown(t *testing.T) {
	router := NewRouter(newTestApp(t, "http://127.0.0.1:1"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(newTestApp(t, "http://127.0.0.1:1"))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
