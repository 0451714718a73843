// Package expander turns a validated start request into an evaluation task
// and its full cross-product of evaluation units.
package expander

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/evalbench/evalbench/internal/models"
	"github.com/evalbench/evalbench/internal/questionbank"
	"github.com/evalbench/evalbench/internal/runner"
)

// Request is a validated evaluation start request.
type Request struct {
	Subjects    []string
	Models      []string
	PromptTypes []models.PromptType
	Count       int
}

// Expander validates requests against the question bank and the model
// registry, then expands them into units.
type Expander struct {
	bank     *questionbank.Bank
	registry *runner.Registry
}

// New creates an Expander.
func New(bank *questionbank.Bank, registry *runner.Registry) *Expander {
	return &Expander{bank: bank, registry: registry}
}

// Expand validates req and builds the task plus one pending unit per
// (subject, model, prompt type, sample) combination. Validation failures
// mean no task is created at all; a request is never partially accepted.
//
// Unit order is subject, then model, then prompt type, then sample index,
// matching the request's own ordering. Question sampling is deterministic
// per subject, so every model and prompt type sees the same questions.
func (e *Expander) Expand(req Request) (models.EvaluationTask, []models.EvaluationUnit, error) {
	if err := e.validate(req); err != nil {
		return models.EvaluationTask{}, nil, err
	}

	questions := make(map[string][]models.Question, len(req.Subjects))
	for _, subject := range req.Subjects {
		sampled, err := e.bank.Sample(subject, req.Count)
		if err != nil {
			return models.EvaluationTask{}, nil, err
		}
		questions[subject] = sampled
	}

	task := models.EvaluationTask{
		ID:                NewTaskID(),
		Subjects:          req.Subjects,
		Models:            req.Models,
		PromptTypes:       req.PromptTypes,
		SamplesPerSubject: req.Count,
		CreatedAt:         time.Now().UTC(),
		State:             models.TaskCreated,
		TotalUnits:        len(req.Subjects) * len(req.Models) * len(req.PromptTypes) * req.Count,
	}

	units := make([]models.EvaluationUnit, 0, task.TotalUnits)
	for _, subject := range req.Subjects {
		for _, model := range req.Models {
			for _, promptType := range req.PromptTypes {
				for sample := 0; sample < req.Count; sample++ {
					units = append(units, models.EvaluationUnit{
						Key: models.UnitKey{
							TaskID:     task.ID,
							Subject:    subject,
							Model:      model,
							PromptType: promptType,
							Sample:     sample,
						},
						Question: questions[subject][sample],
						Outcome:  models.UnitPending,
					})
				}
			}
		}
	}

	return task, units, nil
}

func (e *Expander) validate(req Request) error {
	if len(req.Subjects) == 0 {
		return models.NewError(models.KindInvalidRequest, "at least one subject is required")
	}
	if len(req.Models) == 0 {
		return models.NewError(models.KindInvalidRequest, "at least one model is required")
	}
	if len(req.PromptTypes) == 0 {
		return models.NewError(models.KindInvalidRequest, "at least one prompt type is required")
	}
	if req.Count < 1 {
		return models.NewError(models.KindInvalidRequest, "data_count_per_subject must be at least 1, got %d", req.Count)
	}

	if dup := firstDuplicate(req.Subjects); dup != "" {
		return models.NewError(models.KindInvalidRequest, "duplicate subject %q", dup)
	}
	if dup := firstDuplicate(req.Models); dup != "" {
		return models.NewError(models.KindInvalidRequest, "duplicate model %q", dup)
	}
	seen := map[models.PromptType]bool{}
	for _, pt := range req.PromptTypes {
		if seen[pt] {
			return models.NewError(models.KindInvalidRequest, "duplicate prompt type %q", pt)
		}
		seen[pt] = true
		if _, err := models.ParsePromptType(string(pt)); err != nil {
			return err
		}
	}

	for _, subject := range req.Subjects {
		if !e.bank.Has(subject) {
			return models.NewError(models.KindInvalidRequest, "unknown subject %q", subject)
		}
	}
	for _, model := range req.Models {
		if !e.registry.Has(model) {
			return models.NewError(models.KindInvalidRequest, "unknown model %q", model)
		}
	}

	return nil
}

func firstDuplicate(values []string) string {
	seen := map[string]bool{}
	for _, v := range values {
		if seen[v] {
			return v
		}
		seen[v] = true
	}
	return ""
}

// NewTaskID returns a unique task identifier. The random suffix keeps IDs
// unique when tasks are created within the same second.
func NewTaskID() string {
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return fmt.Sprintf("task-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("task-%d-%s", time.Now().Unix(), hex.EncodeToString(suffix[:]))
}
