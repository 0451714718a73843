package webapi

import (
	"github.com/evalbench/evalbench/internal/models"
)

// StartRequest is the body of POST /evaluation/start.
type StartRequest struct {
	Subjects            []string `json:"subjects"`
	Models              []string `json:"models"`
	PromptTypes         []string `json:"prompt_types"`
	DataCountPerSubject int      `json:"data_count_per_subject"`
}

// StartResponse acknowledges an accepted evaluation task.
type StartResponse struct {
	TaskID     string           `json:"task_id"`
	State      models.TaskState `json:"state"`
	TotalUnits int              `json:"total"`
}

// ModelsResponse lists the configured model names.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// PromptTypesResponse lists the supported prompting strategies.
type PromptTypesResponse struct {
	PromptTypes []models.PromptType `json:"prompt_types"`
}

// TasksResponse lists all known tasks, oldest first.
type TasksResponse struct {
	Tasks []models.EvaluationTask `json:"tasks"`
}

// DetailsResponse carries the raw per-unit outcomes for a task.
type DetailsResponse struct {
	TaskID string                  `json:"task_id"`
	Units  []models.EvaluationUnit `json:"units"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    int      `json:"code"`
	Details []string `json:"details,omitempty"`
}
