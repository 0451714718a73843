// Package aggregate computes accuracy summaries from recorded evaluation
// units. Aggregation is a pure function of the stored units, so results can
// be recomputed at any time, including for tasks that are still running.
package aggregate

import (
	"hash/fnv"

	"github.com/evalbench/evalbench/internal/models"
	"github.com/evalbench/evalbench/internal/statistics"
)

// Cell is the accuracy for one (subject, model, prompt type) combination.
type Cell struct {
	Subject    string            `json:"subject"`
	Model      string            `json:"model"`
	PromptType models.PromptType `json:"prompt_type"`

	Correct int `json:"correct"`
	Graded  int `json:"graded"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`

	// Accuracy is Correct/Graded. Null when no unit was graded; a cell
	// with nothing to measure is undefined, not zero.
	Accuracy *float64 `json:"accuracy"`

	// CI is the bootstrap confidence interval over the graded verdicts,
	// present when there are at least 2 of them.
	CI *statistics.ConfidenceInterval `json:"confidence_interval,omitempty"`
}

// Summary is the full aggregation for a task.
type Summary struct {
	TaskID    string           `json:"task_id"`
	State     models.TaskState `json:"state"`
	Total     int              `json:"total"`
	Completed int              `json:"completed"`
	Failed    int              `json:"failed"`

	Cells []Cell `json:"cells"`

	OverallCorrect int `json:"overall_correct"`
	OverallGraded  int `json:"overall_graded"`

	// OverallAccuracy spans every graded unit in the task. Null when no
	// unit was graded.
	OverallAccuracy *float64                       `json:"overall_accuracy"`
	OverallCI       *statistics.ConfidenceInterval `json:"overall_confidence_interval,omitempty"`
}

// Compute aggregates the units of a task into per-cell and overall accuracy.
// Cells follow the request's subject, model and prompt type ordering.
func Compute(task models.EvaluationTask, units []models.EvaluationUnit) Summary {
	type counts struct {
		correct int
		graded  int
		failed  int
		pending int
	}

	type cellKey struct {
		subject    string
		model      string
		promptType models.PromptType
	}

	tally := map[cellKey]*counts{}
	for _, subject := range task.Subjects {
		for _, model := range task.Models {
			for _, promptType := range task.PromptTypes {
				tally[cellKey{subject, model, promptType}] = &counts{}
			}
		}
	}

	for _, unit := range units {
		c, ok := tally[cellKey{unit.Key.Subject, unit.Key.Model, unit.Key.PromptType}]
		if !ok {
			continue
		}
		switch unit.Outcome {
		case models.UnitFailed:
			c.failed++
		case models.UnitSucceeded:
			if unit.Graded() {
				c.graded++
				if unit.Verdict == models.VerdictCorrect {
					c.correct++
				}
			}
		default:
			c.pending++
		}
	}

	summary := Summary{
		TaskID:    task.ID,
		State:     task.State,
		Total:     task.TotalUnits,
		Completed: task.CompletedUnits,
		Failed:    task.FailedUnits,
	}

	for _, subject := range task.Subjects {
		for _, model := range task.Models {
			for _, promptType := range task.PromptTypes {
				key := cellKey{subject, model, promptType}
				c := tally[key]

				cell := Cell{
					Subject:    subject,
					Model:      model,
					PromptType: promptType,
					Correct:    c.correct,
					Graded:     c.graded,
					Failed:     c.failed,
					Pending:    c.pending,
				}
				if c.graded > 0 {
					accuracy := float64(c.correct) / float64(c.graded)
					cell.Accuracy = &accuracy
				}
				if c.graded > 1 {
					ci := statistics.BootstrapCIWithSeed(
						statistics.BinaryScores(c.correct, c.graded),
						statistics.DefaultConfidenceLevel,
						cellSeed(task.ID, subject, model, string(promptType)))
					cell.CI = &ci
				}

				summary.OverallCorrect += c.correct
				summary.OverallGraded += c.graded
				summary.Cells = append(summary.Cells, cell)
			}
		}
	}

	if summary.OverallGraded > 0 {
		accuracy := float64(summary.OverallCorrect) / float64(summary.OverallGraded)
		summary.OverallAccuracy = &accuracy
	}
	if summary.OverallGraded > 1 {
		ci := statistics.BootstrapCIWithSeed(
			statistics.BinaryScores(summary.OverallCorrect, summary.OverallGraded),
			statistics.DefaultConfidenceLevel,
			cellSeed(task.ID, "", "", ""))
		summary.OverallCI = &ci
	}

	return summary
}

// cellSeed derives a stable bootstrap seed per cell so recomputing the same
// task yields identical intervals.
func cellSeed(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))   //nolint:errcheck
		h.Write([]byte{0x1f}) //nolint:errcheck
	}
	seed := int64(h.Sum64())
	if seed < 0 {
		seed = -seed
	}
	return seed
}
