package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalbench/evalbench/internal/models"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry([]BackendConfig{
		{Name: "mock-a", Backend: "mock"},
		{Name: "mock-b", Backend: "mock", Params: map[string]any{"responses": []string{"B"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"mock-a", "mock-b"}, reg.Names())
	assert.True(t, reg.Has("mock-a"))
	assert.False(t, reg.Has("gpt-4"))

	runner, err := reg.Pick("mock-b")
	require.NoError(t, err)
	resp, err := runner.Answer(context.Background(), AnswerRequest{Model: "mock-b", Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "B", resp.Content)

	_, err = reg.Pick("gpt-4")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestNewRegistryErrors(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		_, err := NewRegistry([]BackendConfig{{Backend: "mock"}})
		require.True(t, models.IsKind(err, models.KindInvalidRequest))
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := NewRegistry([]BackendConfig{
			{Name: "m", Backend: "mock"},
			{Name: "m", Backend: "mock"},
		})
		require.True(t, models.IsKind(err, models.KindInvalidRequest))
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewRegistry([]BackendConfig{{Name: "m", Backend: "telepathy"}})
		require.True(t, models.IsKind(err, models.KindInvalidRequest))
	})

	t.Run("unknown param key", func(t *testing.T) {
		_, err := NewRegistry([]BackendConfig{
			{Name: "m", Backend: "mock", Params: map[string]any{"respnses": []string{"A"}}},
		})
		require.Error(t, err)
	})
}

func TestDecodeCopilotParams(t *testing.T) {
	params, err := decodeCopilotParams(map[string]any{
		"cli_path": "/usr/local/bin/copilot",
		"timeout":  "30s",
	})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/copilot", params.CLIPath)
	assert.Equal(t, "30s", params.Timeout.String())
	assert.Equal(t, DefaultCopilotLogLevel, params.LogLevel)

	params, err = decodeCopilotParams(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCopilotTimeout, params.Timeout)
}

func TestScriptedRunnerCyclesResponses(t *testing.T) {
	runner := NewScriptedRunner(ScriptParams{Responses: []string{"A", "B"}})

	var got []string
	for i := 0; i < 4; i++ {
		resp, err := runner.Answer(context.Background(), AnswerRequest{Model: "m", Prompt: "q"})
		require.NoError(t, err)
		got = append(got, resp.Content)
	}
	assert.Equal(t, []string{"A", "B", "A", "B"}, got)
}

func TestScriptedRunnerFailFirst(t *testing.T) {
	runner := NewScriptedRunner(ScriptParams{Responses: []string{"C"}, FailFirst: 2})

	for i := 0; i < 2; i++ {
		_, err := runner.Answer(context.Background(), AnswerRequest{Model: "m", Prompt: "q"})
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindModelUnavailable))
	}

	resp, err := runner.Answer(context.Background(), AnswerRequest{Model: "m", Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "C", resp.Content)
}

func TestClassifyCancellationPassesThrough(t *testing.T) {
	err := classify("m", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, models.IsKind(err, models.KindModelUnavailable))
}
