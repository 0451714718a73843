// Package store keeps evaluation tasks and their units in memory. All
// mutation goes through RecordOutcome and the explicit state transitions,
// which is what keeps counters and task state consistent under concurrent
// workers.
package store

import (
	"sort"
	"sync"

	"github.com/evalbench/evalbench/internal/models"
)

// TaskStore provides access to evaluation task data.
type TaskStore interface {
	// CreateTask registers a new task with its expanded units.
	CreateTask(task models.EvaluationTask, units []models.EvaluationUnit) error

	// GetTask returns a snapshot of a single task.
	GetTask(id string) (models.EvaluationTask, error)

	// ListTasks returns snapshots of all tasks, oldest first.
	ListTasks() []models.EvaluationTask

	// Units returns snapshots of all units for a task, in expansion order.
	Units(taskID string) ([]models.EvaluationUnit, error)

	// MarkRunning transitions a task from created to running.
	MarkRunning(id string) error

	// Cancel transitions a non-terminal task to cancelled and returns the
	// updated snapshot.
	Cancel(id string) (models.EvaluationTask, error)

	// RecordOutcome stores a unit's terminal outcome, updates the task
	// counters and finalizes the task once every unit is terminal. The
	// returned snapshot reflects the update; finalized is true only for
	// the single call that transitioned the task to a terminal state.
	RecordOutcome(unit models.EvaluationUnit) (task models.EvaluationTask, finalized bool, err error)
}

type taskRecord struct {
	task  models.EvaluationTask
	units map[string]*models.EvaluationUnit
	order []string
}

// MemoryStore is the in-memory TaskStore used by the service.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*taskRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: map[string]*taskRecord{}}
}

func (s *MemoryStore) CreateTask(task models.EvaluationTask, units []models.EvaluationUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		return models.NewError(models.KindInternal, "task has no ID")
	}
	if _, exists := s.tasks[task.ID]; exists {
		return models.NewError(models.KindInternal, "task %q already exists", task.ID)
	}
	if len(units) != task.TotalUnits {
		return models.NewError(models.KindInternal,
			"task %q declares %d units but %d were provided", task.ID, task.TotalUnits, len(units))
	}

	rec := &taskRecord{
		task:  task,
		units: make(map[string]*models.EvaluationUnit, len(units)),
		order: make([]string, 0, len(units)),
	}
	for i := range units {
		unit := units[i]
		key := unit.Key.String()
		if _, dup := rec.units[key]; dup {
			return models.NewError(models.KindInternal, "duplicate unit %s", key)
		}
		rec.units[key] = &unit
		rec.order = append(rec.order, key)
	}

	s.tasks[task.ID] = rec
	return nil
}

func (s *MemoryStore) GetTask(id string) (models.EvaluationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tasks[id]
	if !ok {
		return models.EvaluationTask{}, models.NewError(models.KindNotFound, "task %q not found", id)
	}
	return rec.task, nil
}

func (s *MemoryStore) ListTasks() []models.EvaluationTask {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.EvaluationTask, 0, len(s.tasks))
	for _, rec := range s.tasks {
		tasks = append(tasks, rec.task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

func (s *MemoryStore) Units(taskID string) ([]models.EvaluationUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tasks[taskID]
	if !ok {
		return nil, models.NewError(models.KindNotFound, "task %q not found", taskID)
	}

	units := make([]models.EvaluationUnit, 0, len(rec.order))
	for _, key := range rec.order {
		units = append(units, *rec.units[key])
	}
	return units, nil
}

func (s *MemoryStore) MarkRunning(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[id]
	if !ok {
		return models.NewError(models.KindNotFound, "task %q not found", id)
	}
	if rec.task.State != models.TaskCreated {
		return models.NewError(models.KindInternal,
			"task %q cannot start from state %q", id, rec.task.State)
	}
	rec.task.State = models.TaskRunning
	return nil
}

func (s *MemoryStore) Cancel(id string) (models.EvaluationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[id]
	if !ok {
		return models.EvaluationTask{}, models.NewError(models.KindNotFound, "task %q not found", id)
	}
	if rec.task.State.Terminal() {
		return models.EvaluationTask{}, models.NewError(models.KindInvalidRequest,
			"task %q is already %s", id, rec.task.State)
	}
	rec.task.State = models.TaskCancelled
	return rec.task, nil
}

func (s *MemoryStore) RecordOutcome(unit models.EvaluationUnit) (models.EvaluationTask, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[unit.Key.TaskID]
	if !ok {
		return models.EvaluationTask{}, false, models.NewError(models.KindNotFound, "task %q not found", unit.Key.TaskID)
	}

	key := unit.Key.String()
	stored, ok := rec.units[key]
	if !ok {
		return models.EvaluationTask{}, false, models.NewError(models.KindInternal, "unit %s not found", key)
	}
	if stored.Outcome.Terminal() {
		return models.EvaluationTask{}, false, models.NewError(models.KindInternal,
			"unit %s already has outcome %q", key, stored.Outcome)
	}
	if !unit.Outcome.Terminal() {
		return models.EvaluationTask{}, false, models.NewError(models.KindInternal,
			"unit %s outcome %q is not terminal", key, unit.Outcome)
	}

	*stored = unit
	switch unit.Outcome {
	case models.UnitSucceeded:
		rec.task.CompletedUnits++
	case models.UnitFailed:
		rec.task.FailedUnits++
	}

	// A cancelled task keeps its cancelled state even as in-flight units
	// drain; only a running task finalizes.
	finalized := false
	done := rec.task.CompletedUnits+rec.task.FailedUnits == rec.task.TotalUnits
	if done && rec.task.State == models.TaskRunning {
		if rec.task.CompletedUnits > 0 {
			rec.task.State = models.TaskCompleted
		} else {
			rec.task.State = models.TaskFailed
		}
		finalized = true
	}

	return rec.task, finalized, nil
}

// Ensure MemoryStore satisfies TaskStore.
var _ TaskStore = (*MemoryStore)(nil)
