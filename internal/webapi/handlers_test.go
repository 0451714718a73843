package webapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalbench/evalbench/internal/aggregate"
	"github.com/evalbench/evalbench/internal/expander"
	"github.com/evalbench/evalbench/internal/models"
	"github.com/evalbench/evalbench/internal/questionbank"
	"github.com/evalbench/evalbench/internal/runner"
	"github.com/evalbench/evalbench/internal/scheduler"
	"github.com/evalbench/evalbench/internal/store"
)

const astronomyCSV = `question,choice_a,choice_b,choice_c,choice_d,answer
What is the largest planet in the solar system?,Earth,Jupiter,Saturn,Mars,B
Which planet is closest to the sun?,Venus,Earth,Mercury,Mars,C
What force keeps planets in orbit?,Magnetism,Gravity,Friction,Inertia,B
`

func newTestMux(t *testing.T) (*http.ServeMux, store.TaskStore) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "astronomy.csv"), []byte(astronomyCSV), 0o644))
	bank, err := questionbank.Load(dir)
	require.NoError(t, err)

	registry, err := runner.NewRegistry([]runner.BackendConfig{
		{Name: "mock-model", Backend: "mock", Params: map[string]any{"responses": []string{"B"}}},
	})
	require.NoError(t, err)

	taskStore := store.NewMemoryStore()
	sched := scheduler.New(taskStore, registry)

	mux := http.NewServeMux()
	RegisterRoutes(mux, NewHandlers(taskStore, sched, expander.New(bank, registry), registry))
	return mux, taskStore
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func startTask(t *testing.T, mux *http.ServeMux) StartResponse {
	t.Helper()

	rec := doRequest(t, mux, http.MethodPost, "/evaluation/start",
		`{"subjects":["astronomy"],"models":["mock-model"],"prompt_types":["zero_shot"],"data_count_per_subject":2}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleHealth(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := doRequest(t, mux, http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleModels(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := doRequest(t, mux, http.MethodGet, "/evaluation/models", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"mock-model"}, resp.Models)
}

func TestHandlePromptTypes(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := doRequest(t, mux, http.MethodGet, "/evaluation/prompt-types", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PromptTypesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.PromptTypes, 4)
}

func TestHandleStart(t *testing.T) {
	mux, taskStore := newTestMux(t)
	resp := startTask(t, mux)

	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, models.TaskRunning, resp.State)
	assert.Equal(t, 2, resp.TotalUnits)

	task, err := taskStore.GetTask(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskRunning, task.State)
}

func TestHandleStartSchemaViolations(t *testing.T) {
	mux, taskStore := newTestMux(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing fields", `{"subjects":["astronomy"]}`},
		{"empty subjects", `{"subjects":[],"models":["mock-model"],"prompt_types":["zero_shot"],"data_count_per_subject":1}`},
		{"zero count", `{"subjects":["astronomy"],"models":["mock-model"],"prompt_types":["zero_shot"],"data_count_per_subject":0}`},
		{"bad prompt type", `{"subjects":["astronomy"],"models":["mock-model"],"prompt_types":["one_shot"],"data_count_per_subject":1}`},
		{"unknown key", `{"subjects":["astronomy"],"models":["mock-model"],"prompt_types":["zero_shot"],"data_count_per_subject":1,"extra":true}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, mux, http.MethodPost, "/evaluation/start", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}

	assert.Empty(t, taskStore.ListTasks(), "rejected requests must not create tasks")
}

func TestHandleStartUnknownSubject(t *testing.T) {
	mux, taskStore := newTestMux(t)

	rec := doRequest(t, mux, http.MethodPost, "/evaluation/start",
		`{"subjects":["alchemy"],"models":["mock-model"],"prompt_types":["zero_shot"],"data_count_per_subject":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, taskStore.ListTasks())
}

func TestHandleStartOversample(t *testing.T) {
	mux, taskStore := newTestMux(t)

	rec := doRequest(t, mux, http.MethodPost, "/evaluation/start",
		`{"subjects":["astronomy"],"models":["mock-model"],"prompt_types":["zero_shot"],"data_count_per_subject":50}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot sample")
	assert.Empty(t, taskStore.ListTasks())
}

func TestHandleStatus(t *testing.T) {
	mux, _ := newTestMux(t)
	started := startTask(t, mux)

	rec := doRequest(t, mux, http.MethodGet, "/evaluation/status/"+started.TaskID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var task models.EvaluationTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, started.TaskID, task.ID)
	assert.Equal(t, models.TaskRunning, task.State)
	assert.Equal(t, 2, task.TotalUnits)

	rec = doRequest(t, mux, http.MethodGet, "/evaluation/status/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleResults(t *testing.T) {
	mux, _ := newTestMux(t)
	started := startTask(t, mux)

	rec := doRequest(t, mux, http.MethodGet, "/evaluation/results/"+started.TaskID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary aggregate.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, started.TaskID, summary.TaskID)
	require.Len(t, summary.Cells, 1)
	assert.Nil(t, summary.Cells[0].Accuracy, "nothing graded yet, accuracy is null")
	assert.Contains(t, rec.Body.String(), `"overall_accuracy":null`)

	rec = doRequest(t, mux, http.MethodGet, "/evaluation/results/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleResultDetails(t *testing.T) {
	mux, _ := newTestMux(t)
	started := startTask(t, mux)

	rec := doRequest(t, mux, http.MethodGet, "/evaluation/results/"+started.TaskID+"/details", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var details DetailsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	require.Len(t, details.Units, 2)
	for _, unit := range details.Units {
		assert.Equal(t, models.UnitPending, unit.Outcome)
	}
}

func TestHandleTasks(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doRequest(t, mux, http.MethodGet, "/evaluation/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tasks":[]`)

	startTask(t, mux)
	rec = doRequest(t, mux, http.MethodGet, "/evaluation/tasks", "")
	var resp TasksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tasks, 1)
}

func TestHandleCancel(t *testing.T) {
	mux, _ := newTestMux(t)
	started := startTask(t, mux)

	rec := doRequest(t, mux, http.MethodPost, "/evaluation/cancel/"+started.TaskID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var task models.EvaluationTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, models.TaskCancelled, task.State)

	// Cancelling twice is rejected, as is cancelling an unknown task.
	rec = doRequest(t, mux, http.MethodPost, "/evaluation/cancel/"+started.TaskID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, mux, http.MethodPost, "/evaluation/cancel/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("no origins configured means no CORS header", func(t *testing.T) {
		handler := CORSMiddleware(inner)
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://evil.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("allowed origin gets CORS header", func(t *testing.T) {
		handler := CORSMiddleware(inner, "http://localhost:5173")
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin gets no CORS header", func(t *testing.T) {
		handler := CORSMiddleware(inner, "http://localhost:5173")
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://evil.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("OPTIONS preflight short-circuits", func(t *testing.T) {
		handler := CORSMiddleware(inner, "http://localhost:5173")
		req := httptest.NewRequest(http.MethodOptions, "/evaluation/start", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}
