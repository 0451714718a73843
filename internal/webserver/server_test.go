package webserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalbench/evalbench/internal/expander"
	"github.com/evalbench/evalbench/internal/questionbank"
	"github.com/evalbench/evalbench/internal/runner"
	"github.com/evalbench/evalbench/internal/scheduler"
	"github.com/evalbench/evalbench/internal/store"
	"github.com/evalbench/evalbench/internal/webapi"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	dir := t.TempDir()
	csv := "question,choice_a,choice_b,choice_c,choice_d,answer\nWhat is 2+2?,3,4,5,6,B\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arithmetic.csv"), []byte(csv), 0o644))
	bank, err := questionbank.Load(dir)
	require.NoError(t, err)

	registry, err := runner.NewRegistry([]runner.BackendConfig{
		{Name: "mock-model", Backend: "mock"},
	})
	require.NoError(t, err)

	taskStore := store.NewMemoryStore()
	sched := scheduler.New(taskStore, registry)
	handlers := webapi.NewHandlers(taskStore, sched, expander.New(bank, registry), registry)

	srv, err := New(Config{Port: 0, Handlers: handlers})
	require.NoError(t, err)
	return srv.Handler()
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestEvaluationRoutesRegistered(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/evaluation/models", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mock-model")
}

func TestNewRequiresHandlers(t *testing.T) {
	_, err := New(Config{Port: 8080})
	require.Error(t, err)
}
