// Package scheduler executes evaluation units on a shared worker pool.
// Units are dispatched round-robin across active tasks and FIFO within a
// task, so a large task cannot starve a small one submitted after it.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evalbench/evalbench/internal/grader"
	"github.com/evalbench/evalbench/internal/models"
	"github.com/evalbench/evalbench/internal/prompts"
	"github.com/evalbench/evalbench/internal/runner"
	"github.com/evalbench/evalbench/internal/store"
)

const (
	DefaultWorkers      = 4
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 2 * time.Second
)

// Scheduler owns the worker pool and all unit execution.
type Scheduler struct {
	store        store.TaskStore
	registry     *runner.Registry
	workers      int
	maxRetries   int
	retryBackoff time.Duration

	progressMu sync.Mutex
	listeners  []ProgressListener

	mu     sync.Mutex
	queues map[string][]models.EvaluationUnit
	order  []string
	rr     int
	wake   chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMaxRetries sets how many times a model_unavailable failure is retried.
func WithMaxRetries(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the pause between retry attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

// New creates a Scheduler. Call Run to start the worker pool.
func New(taskStore store.TaskStore, registry *runner.Registry, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:        taskStore,
		registry:     registry,
		workers:      DefaultWorkers,
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
		queues:       map[string][]models.EvaluationUnit{},
		wake:         make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnProgress registers a progress listener
func (s *Scheduler) OnProgress(listener ProgressListener) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Scheduler) notifyProgress(event ProgressEvent) {
	s.progressMu.Lock()
	listeners := make([]ProgressListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run starts the dispatcher and worker pool and blocks until ctx is
// cancelled and all in-flight units have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	work := make(chan models.EvaluationUnit)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(work)
		s.dispatch(ctx, work)
		return nil
	})

	for i := 0; i < s.workers; i++ {
		group.Go(func() error {
			for unit := range work {
				s.process(ctx, unit)
			}
			return nil
		})
	}

	return group.Wait()
}

// Submit registers a task and queues all of its units. The task moves to
// running immediately; results arrive asynchronously.
func (s *Scheduler) Submit(task models.EvaluationTask, units []models.EvaluationUnit) error {
	if err := s.store.CreateTask(task, units); err != nil {
		return err
	}
	if err := s.store.MarkRunning(task.ID); err != nil {
		return err
	}

	queued := make([]models.EvaluationUnit, len(units))
	copy(queued, units)

	s.mu.Lock()
	s.queues[task.ID] = queued
	s.order = append(s.order, task.ID)
	s.mu.Unlock()

	slog.Info("task submitted", "task_id", task.ID, "total_units", task.TotalUnits)
	s.notifyProgress(ProgressEvent{
		EventType: EventTaskStarted,
		TaskID:    task.ID,
		State:     models.TaskRunning,
		Total:     task.TotalUnits,
	})

	s.kick()
	return nil
}

// Cancel stops a task. Queued units are dropped; in-flight units are left
// to finish and their outcomes still land in the store.
func (s *Scheduler) Cancel(taskID string) (models.EvaluationTask, error) {
	task, err := s.store.Cancel(taskID)
	if err != nil {
		return models.EvaluationTask{}, err
	}

	s.mu.Lock()
	if _, ok := s.queues[taskID]; ok {
		delete(s.queues, taskID)
		s.dropFromOrder(taskID)
	}
	s.mu.Unlock()

	slog.Info("task cancelled", "task_id", taskID)
	s.notifyProgress(ProgressEvent{
		EventType: EventTaskCancelled,
		TaskID:    taskID,
		State:     models.TaskCancelled,
		Completed: task.CompletedUnits,
		Failed:    task.FailedUnits,
		Total:     task.TotalUnits,
	})
	return task, nil
}

// kick wakes the dispatcher without blocking.
func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) dispatch(ctx context.Context, work chan<- models.EvaluationUnit) {
	for {
		unit, ok := s.nextUnit()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case work <- unit:
		}
	}
}

// nextUnit pops the head of the next non-empty task queue in round-robin
// order. Drained queues leave the rotation.
func (s *Scheduler) nextUnit() (models.EvaluationUnit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < len(s.order); i++ {
		idx := (s.rr + i) % len(s.order)
		id := s.order[idx]
		queue := s.queues[id]
		if len(queue) == 0 {
			continue
		}

		unit := queue[0]
		s.queues[id] = queue[1:]

		if len(queue) == 1 {
			delete(s.queues, id)
			s.order = append(s.order[:idx], s.order[idx+1:]...)
			if len(s.order) > 0 {
				s.rr = idx % len(s.order)
			} else {
				s.rr = 0
			}
		} else {
			s.rr = (idx + 1) % len(s.order)
		}
		return unit, true
	}
	return models.EvaluationUnit{}, false
}

func (s *Scheduler) dropFromOrder(taskID string) {
	for i, id := range s.order {
		if id == taskID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if len(s.order) > 0 {
		s.rr %= len(s.order)
	} else {
		s.rr = 0
	}
}

// process runs one unit to a terminal outcome and records it.
func (s *Scheduler) process(ctx context.Context, unit models.EvaluationUnit) {
	// The task may have been cancelled after this unit was dispatched.
	task, err := s.store.GetTask(unit.Key.TaskID)
	if err != nil || task.State != models.TaskRunning {
		return
	}

	s.notifyProgress(ProgressEvent{
		EventType: EventUnitStarted,
		TaskID:    unit.Key.TaskID,
		Unit:      unit.Key,
		Total:     task.TotalUnits,
	})

	prompt, err := prompts.Build(unit.Key.PromptType, unit.Question)
	if err != nil {
		s.record(s.failUnit(unit, 0, err))
		return
	}

	modelRunner, err := s.registry.Pick(unit.Key.Model)
	if err != nil {
		s.record(s.failUnit(unit, 0, err))
		return
	}

	var resp runner.AnswerResponse
	attempts := 0
	for {
		attempts++
		resp, err = modelRunner.Answer(ctx, runner.AnswerRequest{
			Model:  unit.Key.Model,
			Prompt: prompt,
		})
		if err == nil {
			break
		}

		// Only transient backend failures are retried, and only while the
		// retry budget and the context both allow it.
		if !models.IsKind(err, models.KindModelUnavailable) || attempts > s.maxRetries || ctx.Err() != nil {
			s.record(s.failUnit(unit, attempts, err))
			return
		}

		slog.Debug("retrying unit",
			"unit", unit.Key.String(), "attempt", attempts, "error", err)
		s.notifyProgress(ProgressEvent{
			EventType: EventUnitRetried,
			TaskID:    unit.Key.TaskID,
			Unit:      unit.Key,
			Attempt:   attempts,
		})

		select {
		case <-ctx.Done():
			s.record(s.failUnit(unit, attempts, err))
			return
		case <-time.After(s.retryBackoff):
		}
	}

	result := grader.Grade(unit.Key.PromptType, unit.Question, resp.Content)
	if result.Ungraded {
		unit.Response = resp.Content
		unit.LatencyMs = resp.LatencyMs
		s.record(s.failUnit(unit, attempts,
			models.NewError(models.KindUngraded, "no answer found in response")))
		return
	}

	unit.Outcome = models.UnitSucceeded
	unit.Response = resp.Content
	unit.Extracted = result.Extracted
	unit.Verdict = result.Verdict
	unit.Attempts = attempts
	unit.LatencyMs = resp.LatencyMs
	s.record(unit)
}

func (s *Scheduler) failUnit(unit models.EvaluationUnit, attempts int, err error) models.EvaluationUnit {
	unit.Outcome = models.UnitFailed
	unit.ErrorKind = models.KindOf(err)
	unit.ErrorDetail = err.Error()
	unit.Attempts = attempts
	return unit
}

func (s *Scheduler) record(unit models.EvaluationUnit) {
	task, finalized, err := s.store.RecordOutcome(unit)
	if err != nil {
		slog.Error("failed to record unit outcome", "unit", unit.Key.String(), "error", err)
		return
	}

	if unit.Outcome == models.UnitFailed {
		slog.Warn("unit failed",
			"unit", unit.Key.String(), "error_kind", unit.ErrorKind, "detail", unit.ErrorDetail)
	}

	s.notifyProgress(ProgressEvent{
		EventType: EventUnitFinished,
		TaskID:    unit.Key.TaskID,
		Unit:      unit.Key,
		Outcome:   unit.Outcome,
		Attempt:   unit.Attempts,
		Completed: task.CompletedUnits,
		Failed:    task.FailedUnits,
		Total:     task.TotalUnits,
	})

	if finalized {
		slog.Info("task finished",
			"task_id", task.ID, "state", task.State,
			"completed", task.CompletedUnits, "failed", task.FailedUnits)
		s.notifyProgress(ProgressEvent{
			EventType: EventTaskFinished,
			TaskID:    task.ID,
			State:     task.State,
			Completed: task.CompletedUnits,
			Failed:    task.FailedUnits,
			Total:     task.TotalUnits,
		})
	}
}
