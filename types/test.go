package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Outcome represents the possible states of a test or of a whole run
type Outcome string

const (
	OutcomePass                  Outcome = "Pass"
	OutcomeFail                  Outcome = "Fail"
	OutcomeSkip                  Outcome = "Skip"
	OutcomeCompletedWithFailures Outcome = "CompletedWithFailures"
)

// Summary is the run-level block of a completed test run
type Summary struct {
	Outcome             Outcome `json:"outcome"`
	TestsRan            int     `json:"testsRan"`
	Passing             int     `json:"passing"`
	Failing             int     `json:"failing"`
	Skipped             int     `json:"skipped"`
	FailRate            string  `json:"failRate"`
	TestRunID           string  `json:"testRunId"`
	TestStartTime       string  `json:"testStartTime"`
	TestExecutionTimeMs int64   `json:"testExecutionTimeMs"`
	TestTotalTimeMs     int64   `json:"testTotalTimeMs"`
	CommandTimeMs       int64   `json:"commandTimeMs"`
	Hostname            string  `json:"hostname"`
	OrgID               string  `json:"orgId"`
	UserID              string  `json:"userId"`
	Username            string  `json:"username"`
}

// TestOutcome captures the outcome of a single test
type TestOutcome struct {
	FullName   string  `json:"fullName"`
	Outcome    Outcome `json:"outcome"`
	RunTimeMs  int64   `json:"runTimeMs"`
	Message    string  `json:"message,omitempty"`
	StackTrace string  `json:"stackTrace,omitempty"`
}

// ClassName returns everything before the last dot of the full name
func (o TestOutcome) ClassName() string {
	if i := strings.LastIndex(o.FullName, "."); i >= 0 {
		return o.FullName[:i]
	}
	return ""
}

// MethodName returns the segment after the last dot of the full name
func (o TestOutcome) MethodName() string {
	if i := strings.LastIndex(o.FullName, "."); i >= 0 {
		return o.FullName[i+1:]
	}
	return o.FullName
}

// CoverageRecord is the coverage measured for one class
type CoverageRecord struct {
	ClassName      string `json:"className"`
	Percentage     string `json:"percentage"`
	UncoveredLines []int  `json:"uncoveredLines"`
}

// SortedUncoveredLines returns the uncovered lines as an ascending set
func (c CoverageRecord) SortedUncoveredLines() []int {
	seen := make(map[int]bool, len(c.UncoveredLines))
	lines := make([]int, 0, len(c.UncoveredLines))
	for _, l := range c.UncoveredLines {
		if seen[l] {
			continue
		}
		seen[l] = true
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// TestResult is a completed run as produced by the execution backend
type TestResult struct {
	Summary      Summary          `json:"summary"`
	Tests        []TestOutcome    `json:"tests"`
	CodeCoverage []CoverageRecord `json:"codeCoverage,omitempty"`
}

// FailedTests returns the tests whose outcome is Fail, in original order
func (r *TestResult) FailedTests() []TestOutcome {
	var failed []TestOutcome
	for _, t := range r.Tests {
		if t.Outcome == OutcomeFail {
			failed = append(failed, t)
		}
	}
	return failed
}

// HasFailures reports whether any test failed
func (r *TestResult) HasFailures() bool {
	for _, t := range r.Tests {
		if t.Outcome == OutcomeFail {
			return true
		}
	}
	return false
}

// PendingRun is an asynchronous run that has not been confirmed complete
type PendingRun struct {
	TestRunID string `json:"testRunId"`
}

// RunOutcome is either a *TestResult or a PendingRun
type RunOutcome interface {
	RunID() string
	isRunOutcome()
}

func (r *TestResult) RunID() string { return r.Summary.TestRunID }
func (r *TestResult) isRunOutcome()  {}

func (p PendingRun) RunID() string { return p.TestRunID }
func (p PendingRun) isRunOutcome()  {}

var (
	_ RunOutcome = (*TestResult)(nil)
	_ RunOutcome = PendingRun{}
)

// DecodeRunOutcome decodes a backend response. A response carrying a summary
// is a completed run; anything else must carry a test run id.
func DecodeRunOutcome(data []byte) (RunOutcome, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding run outcome: %w", err)
	}

	if _, ok := fields["summary"]; ok {
		var result TestResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("decoding test result: %w", err)
		}
		return &result, nil
	}

	var pending PendingRun
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("decoding pending run: %w", err)
	}
	if pending.TestRunID == "" {
		return nil, errors.New("response has neither a summary nor a test run id")
	}
	return pending, nil
}
