package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Evaluation completed
	ExitEvalFailed = 1 // Evaluation task ended in the failed state
	ExitError      = 2 // Configuration or runtime error
)

// EvalFailureError indicates that the evaluation ran to completion but every
// unit failed, leaving the task in the failed state.
type EvalFailureError struct {
	Message string
}

func (e *EvalFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var evalFailureErr *EvalFailureError
		if errors.As(err, &evalFailureErr) {
			os.Exit(ExitEvalFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
