// Package webapi exposes the evaluation service over HTTP.
package webapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/evalbench/evalbench/internal/aggregate"
	"github.com/evalbench/evalbench/internal/expander"
	"github.com/evalbench/evalbench/internal/models"
	"github.com/evalbench/evalbench/internal/runner"
	"github.com/evalbench/evalbench/internal/store"
)

// Version is set at build time or defaults to dev.
var Version = "0.1.0"

// maxRequestBody bounds start request bodies.
const maxRequestBody = 1 << 20

// TaskLauncher is the scheduler surface the API needs.
type TaskLauncher interface {
	// Submit registers a task and queues its units for execution.
	Submit(task models.EvaluationTask, units []models.EvaluationUnit) error

	// Cancel stops a task, dropping its queued units.
	Cancel(taskID string) (models.EvaluationTask, error)
}

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	store    store.TaskStore
	launcher TaskLauncher
	expander *expander.Expander
	registry *runner.Registry
}

// NewHandlers creates a new Handlers.
func NewHandlers(taskStore store.TaskStore, launcher TaskLauncher, exp *expander.Expander, registry *runner.Registry) *Handlers {
	return &Handlers{
		store:    taskStore,
		launcher: launcher,
		expander: exp,
		registry: registry,
	}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// HandleModels lists the configured model names.
func (h *Handlers) HandleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{Models: h.registry.Names()})
}

// HandlePromptTypes lists the supported prompting strategies.
func (h *Handlers) HandlePromptTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PromptTypesResponse{PromptTypes: models.AllPromptTypes()})
}

// HandleStart validates a start request, expands it into units and hands the
// task to the scheduler. The response returns immediately; execution is
// asynchronous.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if errs := validateStartRequestBytes(body); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid start request",
			Code:    http.StatusBadRequest,
			Details: errs,
		})
		return
	}

	var req StartRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed start request")
		return
	}

	promptTypes := make([]models.PromptType, 0, len(req.PromptTypes))
	for _, raw := range req.PromptTypes {
		pt, err := models.ParsePromptType(raw)
		if err != nil {
			writeErrorKind(w, err)
			return
		}
		promptTypes = append(promptTypes, pt)
	}

	task, units, err := h.expander.Expand(expander.Request{
		Subjects:    req.Subjects,
		Models:      req.Models,
		PromptTypes: promptTypes,
		Count:       req.DataCountPerSubject,
	})
	if err != nil {
		// Validation failed: no task exists, nothing was queued.
		writeErrorKind(w, err)
		return
	}

	if err := h.launcher.Submit(task, units); err != nil {
		writeErrorKind(w, err)
		return
	}

	slog.Info("evaluation started", "task_id", task.ID, "total_units", task.TotalUnits)
	writeJSON(w, http.StatusAccepted, StartResponse{
		TaskID:     task.ID,
		State:      models.TaskRunning,
		TotalUnits: task.TotalUnits,
	})
}

// HandleStatus returns the task's current state and progress counters.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.GetTask(r.PathValue("task_id"))
	if err != nil {
		writeErrorKind(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleResults returns the aggregated accuracy summary for a task. Results
// for a running task reflect the units graded so far.
func (h *Handlers) HandleResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	task, err := h.store.GetTask(id)
	if err != nil {
		writeErrorKind(w, err)
		return
	}
	units, err := h.store.Units(id)
	if err != nil {
		writeErrorKind(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Compute(task, units))
}

// HandleResultDetails returns the raw per-unit outcomes for a task.
func (h *Handlers) HandleResultDetails(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	units, err := h.store.Units(id)
	if err != nil {
		writeErrorKind(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DetailsResponse{TaskID: id, Units: units})
}

// HandleTasks lists all tasks, oldest first.
func (h *Handlers) HandleTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := h.store.ListTasks()
	if tasks == nil {
		tasks = []models.EvaluationTask{}
	}
	writeJSON(w, http.StatusOK, TasksResponse{Tasks: tasks})
}

// HandleCancel cancels a running task.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	task, err := h.launcher.Cancel(r.PathValue("task_id"))
	if err != nil {
		writeErrorKind(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /evaluation/models", h.HandleModels)
	mux.HandleFunc("GET /evaluation/prompt-types", h.HandlePromptTypes)
	mux.HandleFunc("POST /evaluation/start", h.HandleStart)
	mux.HandleFunc("GET /evaluation/status/{task_id}", h.HandleStatus)
	mux.HandleFunc("GET /evaluation/results/{task_id}", h.HandleResults)
	mux.HandleFunc("GET /evaluation/results/{task_id}/details", h.HandleResultDetails)
	mux.HandleFunc("GET /evaluation/tasks", h.HandleTasks)
	mux.HandleFunc("POST /evaluation/cancel/{task_id}", h.HandleCancel)
}

// CORSMiddleware wraps a handler with CORS headers.
// If allowedOrigins is empty, no CORS header is set (same-origin only).
// Otherwise, the request Origin is checked against the allowed list.
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if len(allowedOrigins) > 0 && origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}

// writeErrorKind maps the service error taxonomy onto HTTP status codes.
func writeErrorKind(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch models.KindOf(err) {
	case models.KindInvalidRequest:
		status = http.StatusBadRequest
	case models.KindNotFound:
		status = http.StatusNotFound
	}
	writeError(w, status, err.Error())
}
