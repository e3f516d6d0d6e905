package types

import (
	"errors"
	"fmt"
)

// Rules reported by InvalidCombinationError
const (
	RuleSyncSingleClassOnly             = "sync-single-class-only"
	RuleSpecifierRequiresSpecifiedTests = "specifier-requires-RunSpecifiedTests"
	RuleMutuallyExclusiveSpecifiers     = "mutually-exclusive-specifiers"
)

var ruleMessages = map[string]string{
	RuleSyncSingleClassOnly:             "synchronous test runs can include test methods from only one class",
	RuleSpecifierRequiresSpecifiedTests: "--tests, --class-names and --suite-names require --test-level RunSpecifiedTests",
	RuleMutuallyExclusiveSpecifiers:     "--tests, --class-names and --suite-names are mutually exclusive",
}

// ErrCancelled is returned when local cancellation was requested during a run
var ErrCancelled = errors.New("cancelled")

// InvalidCombinationError reports conflicting run options
type InvalidCombinationError struct {
	Rule string
}

func (e *InvalidCombinationError) Error() string {
	if msg, ok := ruleMessages[e.Rule]; ok {
		return fmt.Sprintf("invalid combination (%s): %s", e.Rule, msg)
	}
	return fmt.Sprintf("invalid combination (%s)", e.Rule)
}

// NewInvalidCombinationError creates a new InvalidCombinationError
func NewInvalidCombinationError(rule string) *InvalidCombinationError {
	return &InvalidCombinationError{Rule: rule}
}

// IsInvalidCombination checks if the error is or wraps an InvalidCombinationError
func IsInvalidCombination(err error) bool {
	var target *InvalidCombinationError
	return err != nil && errors.As(err, &target)
}

// IoError reports a failure to persist an artifact
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *IoError) Unwrap() error {
	return e.Err
}

// IsIoError checks if the error is or wraps an IoError
func IsIoError(err error) bool {
	var target *IoError
	return err != nil && errors.As(err, &target)
}

// RemoteExecutionError wraps any failure coming from the execution backend
type RemoteExecutionError struct {
	Op  string
	Err error
}

func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RemoteExecutionError) Unwrap() error {
	return e.Err
}

// IsRemoteExecutionError checks if the error is or wraps a RemoteExecutionError
func IsRemoteExecutionError(err error) bool {
	var target *RemoteExecutionError
	return err != nil && errors.As(err, &target)
}
