package runner

import (
	"context"
	"sync"
	"time"

	"github.com/evalbench/evalbench/internal/models"
)

// ScriptedRunner is the mock backend. It replays a fixed list of responses,
// which makes pipeline behavior reproducible in tests and dry runs.
type ScriptedRunner struct {
	params ScriptParams

	mu    sync.Mutex
	calls int
}

// NewScriptedRunner creates a mock runner from its params.
func NewScriptedRunner(params ScriptParams) *ScriptedRunner {
	if len(params.Responses) == 0 {
		params.Responses = []string{"A"}
	}
	return &ScriptedRunner{params: params}
}

// Answer replays the next scripted response. The first FailFirst calls fail
// as model_unavailable so retry handling can be exercised end to end.
func (r *ScriptedRunner) Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	r.mu.Lock()
	call := r.calls
	r.calls++
	r.mu.Unlock()

	if r.params.Latency > 0 {
		select {
		case <-time.After(r.params.Latency):
		case <-ctx.Done():
			return AnswerResponse{}, ctx.Err()
		}
	}

	if call < r.params.FailFirst {
		return AnswerResponse{}, models.NewError(models.KindModelUnavailable,
			"scripted failure %d of %d for model %q", call+1, r.params.FailFirst, req.Model)
	}

	content := r.params.Responses[call%len(r.params.Responses)]
	return AnswerResponse{
		Content:   content,
		LatencyMs: r.params.Latency.Milliseconds(),
	}, nil
}

// Shutdown is a no-op for the mock backend.
func (r *ScriptedRunner) Shutdown(ctx context.Context) error {
	return nil
}
