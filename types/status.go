package types

// RunState is the server-side state of a submitted run
type RunState string

const (
	RunStateQueued     RunState = "Queued"
	RunStateProcessing RunState = "Processing"
	RunStateCompleted  RunState = "Completed"
	RunStateFailed     RunState = "Failed"
	RunStateAborted    RunState = "Aborted"
)

// Finished reports whether the server will not make further progress on the run
func (s RunState) Finished() bool {
	return s == RunStateCompleted || s == RunStateFailed || s == RunStateAborted
}

// RunStatus is the answer to a status poll
type RunStatus struct {
	TestRunID string   `json:"testRunId"`
	State     RunState `json:"state"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
}

// LogRecord is one debug log fetched from the remote service
type LogRecord struct {
	ID  string `json:"id"`
	Log string `json:"log"`
}
