package models

import "fmt"

// UnitOutcome is the execution state of a single evaluation unit.
type UnitOutcome string

const (
	UnitPending   UnitOutcome = "pending"
	UnitSucceeded UnitOutcome = "succeeded"
	UnitFailed    UnitOutcome = "failed"
)

// Terminal reports whether the outcome admits no further transitions.
func (o UnitOutcome) Terminal() bool {
	return o == UnitSucceeded || o == UnitFailed
}

// Verdict is the correctness judgment for a graded response.
type Verdict string

const (
	// VerdictNone means the unit has not been graded (pending or failed).
	VerdictNone      Verdict = ""
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// UnitKey uniquely identifies a unit within a task.
type UnitKey struct {
	TaskID     string     `json:"task_id"`
	Subject    string     `json:"subject"`
	Model      string     `json:"model"`
	PromptType PromptType `json:"prompt_type"`
	Sample     int        `json:"sample"`
}

func (k UnitKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%d", k.TaskID, k.Subject, k.Model, k.PromptType, k.Sample)
}

// EvaluationUnit is one atomic (subject, model, prompt type, sample)
// evaluation question, together with its outcome once executed.
type EvaluationUnit struct {
	Key      UnitKey  `json:"key"`
	Question Question `json:"question"`

	Outcome UnitOutcome `json:"outcome"`
	// Response is the raw model output, present once the unit succeeded.
	Response string `json:"response,omitempty"`
	// Extracted is the answer label the grader parsed out of Response.
	// Empty when no recognizable answer was found.
	Extracted string  `json:"extracted,omitempty"`
	Verdict   Verdict `json:"verdict,omitempty"`
	// ErrorKind and ErrorDetail are present once the unit failed.
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	Attempts    int       `json:"attempts,omitempty"`
	LatencyMs   int64     `json:"latency_ms,omitempty"`
}

// Graded reports whether the unit succeeded and carries a verdict. Only
// graded units enter accuracy denominators.
func (u *EvaluationUnit) Graded() bool {
	return u.Outcome == UnitSucceeded && u.Verdict != VerdictNone
}
