package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	copilot "github.com/github/copilot-sdk/go"

	"github.com/evalbench/evalbench/internal/models"
)

// CopilotRunner answers prompts through the GitHub Copilot SDK. Each Answer
// call gets a fresh session so questions never share conversation history.
type CopilotRunner struct {
	params CopilotParams

	client    copilotClient
	startOnce sync.Once
}

// CopilotRunnerOptions carries test hooks for NewCopilotRunner.
type CopilotRunnerOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotRunner creates a runner backed by the Copilot CLI.
func NewCopilotRunner(params CopilotParams, options *CopilotRunnerOptions) *CopilotRunner {
	clientOptions := &copilot.ClientOptions{
		CLIPath:   params.CLIPath,
		LogLevel:  params.LogLevel,
		AutoStart: copilot.Bool(false),
	}

	var client copilotClient
	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(clientOptions)
	} else {
		client = options.NewCopilotClient(clientOptions)
	}

	return &CopilotRunner{
		params: params,
		client: client,
	}
}

// Answer sends the prompt in a new session and returns the assistant output.
func (r *CopilotRunner) Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	var startErr error

	r.startOnce.Do(func() {
		// NOTE: the client has an 'autostart' feature, but it runs into
		// issues when it tries to autostart from separate goroutines.
		startErr = r.client.Start(ctx)
	})

	if startErr != nil {
		return AnswerResponse{}, models.WrapError(models.KindModelUnavailable, startErr, "copilot failed to start")
	}

	ctx, cancel := context.WithTimeout(ctx, r.params.Timeout)
	defer cancel()

	start := time.Now()

	session, err := r.client.CreateSession(ctx, &copilot.SessionConfig{
		Model: req.Model,
	})
	if err != nil {
		return AnswerResponse{}, classify(req.Model, fmt.Errorf("failed to create session: %w", err))
	}

	collector := &answerCollector{}
	unsubscribe := session.On(collector.On)
	defer unsubscribe()

	if _, err := session.SendAndWait(ctx, copilot.MessageOptions{Prompt: req.Prompt}); err != nil {
		return AnswerResponse{}, classify(req.Model, err)
	}

	if collector.errorMsg != "" {
		return AnswerResponse{}, classify(req.Model, fmt.Errorf("%s", collector.errorMsg))
	}

	content := collector.Text()
	if content == "" {
		return AnswerResponse{}, models.NewError(models.KindInternal, "model %q returned no output", req.Model)
	}

	return AnswerResponse{
		Content:   content,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Shutdown stops the underlying client.
func (r *CopilotRunner) Shutdown(ctx context.Context) error {
	return r.client.Stop()
}
