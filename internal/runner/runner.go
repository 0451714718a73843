// Package runner abstracts the model backends that answer evaluation
// prompts. A Registry maps configured model names to backends so the rest
// of the service only ever deals with the Runner interface.
package runner

import (
	"context"
	"sort"

	"github.com/evalbench/evalbench/internal/models"
)

// AnswerRequest is one prompt sent to a model.
type AnswerRequest struct {
	// Model is the backend model identifier.
	Model string

	// Prompt is the fully rendered question prompt.
	Prompt string
}

// AnswerResponse is the raw model output for one prompt.
type AnswerResponse struct {
	Content   string
	LatencyMs int64
}

// Runner answers prompts for a single configured model.
type Runner interface {
	// Answer sends one prompt and waits for the full response. Transient
	// backend failures come back as model_unavailable errors so callers
	// can decide whether to retry.
	Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error)

	// Shutdown cleans up backend resources.
	Shutdown(ctx context.Context) error
}

// BackendConfig declares one named model and the backend that serves it.
type BackendConfig struct {
	// Name is the model name exposed through the API.
	Name string `yaml:"name"`

	// Backend selects the implementation ("copilot" or "mock").
	Backend string `yaml:"backend"`

	// Params holds backend-specific settings, decoded per backend.
	Params map[string]any `yaml:"params"`
}

// Registry holds the configured runners keyed by model name.
type Registry struct {
	runners map[string]Runner
}

// NewRegistry builds runners for every configured model. Duplicate model
// names and unknown backends are configuration errors.
func NewRegistry(configs []BackendConfig) (*Registry, error) {
	reg := &Registry{runners: map[string]Runner{}}

	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, models.NewError(models.KindInvalidRequest, "model entry is missing a name")
		}
		if _, exists := reg.runners[cfg.Name]; exists {
			return nil, models.NewError(models.KindInvalidRequest, "duplicate model name %q", cfg.Name)
		}

		runner, err := buildRunner(cfg)
		if err != nil {
			return nil, err
		}
		reg.runners[cfg.Name] = runner
	}

	return reg, nil
}

func buildRunner(cfg BackendConfig) (Runner, error) {
	switch cfg.Backend {
	case "copilot":
		params, err := decodeCopilotParams(cfg.Params)
		if err != nil {
			return nil, models.WrapError(models.KindInvalidRequest, err, "model %q: invalid copilot params", cfg.Name)
		}
		return NewCopilotRunner(params, nil), nil
	case "mock":
		params, err := decodeScriptParams(cfg.Params)
		if err != nil {
			return nil, models.WrapError(models.KindInvalidRequest, err, "model %q: invalid mock params", cfg.Name)
		}
		return NewScriptedRunner(params), nil
	default:
		return nil, models.NewError(models.KindInvalidRequest, "model %q: unknown backend %q", cfg.Name, cfg.Backend)
	}
}

// NewStaticRegistry builds a registry from already constructed runners,
// keyed by model name.
func NewStaticRegistry(runners map[string]Runner) *Registry {
	reg := &Registry{runners: map[string]Runner{}}
	for name, r := range runners {
		reg.runners[name] = r
	}
	return reg
}

// Has reports whether a model name is configured.
func (r *Registry) Has(name string) bool {
	_, ok := r.runners[name]
	return ok
}

// Names returns all configured model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pick returns the runner for a model name.
func (r *Registry) Pick(name string) (Runner, error) {
	runner, ok := r.runners[name]
	if !ok {
		return nil, models.NewError(models.KindNotFound, "model %q is not configured", name)
	}
	return runner, nil
}

// Shutdown stops every runner, returning the first error encountered.
func (r *Registry) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, name := range r.Names() {
		if err := r.runners[name].Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
