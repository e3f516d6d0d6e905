package testrun

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-testrun/exitcodes"
)

// RuntimeError represents an operational error that should lead to exit code 1.
// Examples include configuration errors, unreachable services, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError is returned when a completed run did not pass (exit code 100)
type TestFailureError struct {
	RunID  string
	Failed int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %d failed test(s) in test run %s", e.Failed, e.RunID)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(runID string, failed int) *TestFailureError {
	return &TestFailureError{RunID: runID, Failed: failed}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// ExitCode maps an error returned by a command to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		return exitcodes.RuntimeErr
	}
}
