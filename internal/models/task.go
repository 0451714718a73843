package models

import (
	"fmt"
	"time"
)

// TaskState represents the lifecycle state of an evaluation task.
type TaskState string

const (
	// TaskCreated is the instant a task is registered, before any unit dispatch.
	TaskCreated TaskState = "created"
	// TaskRunning begins when the first unit is dispatched.
	TaskRunning TaskState = "running"
	// TaskCompleted means every unit reached a terminal outcome and at least
	// one unit succeeded. Partial degradation is visible through FailedCount.
	TaskCompleted TaskState = "completed"
	// TaskFailed means every unit failed.
	TaskFailed TaskState = "failed"
	// TaskCancelled is set on explicit request. Already-dispatched units are
	// allowed to finish; no new units are dispatched.
	TaskCancelled TaskState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// EvaluationTask tracks a single evaluation run spanning a cross-product of
// units. Owned by the task store; mutated only through it.
type EvaluationTask struct {
	ID                string       `json:"task_id"`
	Subjects          []string     `json:"subjects"`
	Models            []string     `json:"models"`
	PromptTypes       []PromptType `json:"prompt_types"`
	SamplesPerSubject int          `json:"data_count_per_subject"`
	CreatedAt         time.Time    `json:"created_at"`
	State             TaskState    `json:"state"`
	TotalUnits        int          `json:"total"`
	CompletedUnits    int          `json:"completed"`
	FailedUnits       int          `json:"failed"`
}

// Question is a single multiple-choice question from the bank.
type Question struct {
	Subject string   `json:"subject"`
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"`
}

// AnswerLabel returns the gold answer as a choice letter (0 -> "A").
func (q Question) AnswerLabel() string {
	return string(rune('A' + q.Answer))
}

// Validate checks structural consistency of a bank question.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %s/%d: empty text", q.Subject, q.Index)
	}
	if len(q.Choices) != ChoiceCount {
		return fmt.Errorf("question %s/%d: expected %d choices, got %d", q.Subject, q.Index, ChoiceCount, len(q.Choices))
	}
	if q.Answer < 0 || q.Answer >= len(q.Choices) {
		return fmt.Errorf("question %s/%d: answer index %d out of range", q.Subject, q.Index, q.Answer)
	}
	return nil
}

// ChoiceCount is the number of options per multiple-choice question.
const ChoiceCount = 4
