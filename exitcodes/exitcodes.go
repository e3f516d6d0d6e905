// Package exitcodes defines the standard exit codes used by op-testrun.
package exitcodes

// Exit code constants used by op-testrun
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all tests pass, or when a run was submitted and is still pending
// * RuntimeErr (1): Used for validation, cancellation, persistence and remote failures
// * TestFailure (100): Used when the reported run did not pass
const (
	Success     = 0   // All tests pass
	RuntimeErr  = 1   // Runtime errors, invalid options or cancellation
	TestFailure = 100 // Test failures
)
