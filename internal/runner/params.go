package runner

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
)

const (
	// DefaultCopilotTimeout bounds a single prompt round-trip.
	DefaultCopilotTimeout = 2 * time.Minute

	// DefaultCopilotLogLevel keeps the SDK quiet unless debugging.
	DefaultCopilotLogLevel = "error"
)

// CopilotParams configures the copilot backend.
type CopilotParams struct {
	// CLIPath overrides the copilot CLI binary location.
	CLIPath string `mapstructure:"cli_path"`

	// LogLevel is passed through to the SDK client.
	LogLevel string `mapstructure:"log_level"`

	// Timeout bounds each Answer call.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScriptParams configures the mock backend used in tests and dry runs.
type ScriptParams struct {
	// Responses are replayed in order, cycling once exhausted. Defaults to
	// a single "A" reply.
	Responses []string `mapstructure:"responses"`

	// FailFirst makes the first N calls fail as model_unavailable, for
	// exercising retry behavior.
	FailFirst int `mapstructure:"fail_first"`

	// Latency is added to every call.
	Latency time.Duration `mapstructure:"latency"`
}

func decodeCopilotParams(raw map[string]any) (CopilotParams, error) {
	params := CopilotParams{
		LogLevel: DefaultCopilotLogLevel,
		Timeout:  DefaultCopilotTimeout,
	}
	if err := decodeParams(raw, &params); err != nil {
		return CopilotParams{}, err
	}
	if params.Timeout <= 0 {
		params.Timeout = DefaultCopilotTimeout
	}
	return params, nil
}

func decodeScriptParams(raw map[string]any) (ScriptParams, error) {
	var params ScriptParams
	if err := decodeParams(raw, &params); err != nil {
		return ScriptParams{}, err
	}
	return params, nil
}

// decodeParams decodes loosely typed config params into a backend params
// struct. Unknown keys are rejected so typos surface at startup instead of
// silently using defaults.
func decodeParams(raw map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
