package runner

import (
	"context"
	"errors"
	"strings"

	"github.com/evalbench/evalbench/internal/models"
)

// unavailableMarkers are substrings of backend error messages that indicate
// a transient condition worth retrying.
var unavailableMarkers = []string{
	"rate limit",
	"too many requests",
	"429",
	"502",
	"503",
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"temporarily unavailable",
	"overloaded",
	"unavailable",
}

// classify maps a backend error onto the service error taxonomy. Timeouts,
// rate limits and transport failures become model_unavailable; caller
// cancellation passes through untouched so it is never retried.
func classify(model string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.WrapError(models.KindModelUnavailable, err, "model %q timed out", model)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return models.WrapError(models.KindModelUnavailable, err, "model %q unavailable", model)
		}
	}

	return models.WrapError(models.KindInternal, err, "model %q failed", model)
}
