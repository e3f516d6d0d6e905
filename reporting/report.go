package reporting

import (
	"strconv"
	"time"

	"github.com/ethereum-optimism/infra/op-testrun/exitcodes"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// SummaryField is one labelled entry of the run summary
type SummaryField struct {
	Name  string // Key as it appears in the result record
	Label string // Human-readable label
	Value string
	Unit  string
}

// Display returns the value with its unit, if any
func (f SummaryField) Display() string {
	if f.Unit == "" {
		return f.Value
	}
	return f.Value + " " + f.Unit
}

// ReportStats contains aggregated statistics for a test run
type ReportStats struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	FailRate string
}

// ReportTestItem represents a single test in the report
type ReportTestItem struct {
	Index      int // 1-based position in the run
	Name       string
	ClassName  string
	MethodName string
	Outcome    types.Outcome
	Duration   time.Duration
	Message    string
	StackTrace string
}

// Failed reports whether the test failed
func (i ReportTestItem) Failed() bool {
	return i.Outcome == types.OutcomeFail
}

// ReportCoverageItem is the coverage of one class
type ReportCoverageItem struct {
	ClassName      string
	Percentage     string
	UncoveredLines []int
}

// ReportData contains all the structured data needed for any report format
type ReportData struct {
	Result *types.TestResult

	RunID      string
	Username   string
	Outcome    types.Outcome
	ExitStatus int

	Summary []SummaryField
	Stats   ReportStats

	AllTests    []ReportTestItem
	FailedTests []ReportTestItem
	HasFailures bool

	Coverage []ReportCoverageItem
}

// ExitStatus derives the process exit status of a completed run
func ExitStatus(result *types.TestResult) int {
	if result.Summary.Outcome == types.OutcomePass && !result.HasFailures() {
		return exitcodes.Success
	}
	return exitcodes.TestFailure
}

// BuildReportData extracts everything the renderers need from a result
func BuildReportData(result *types.TestResult) *ReportData {
	s := result.Summary
	data := &ReportData{
		Result:     result,
		RunID:      s.TestRunID,
		Username:   s.Username,
		Outcome:    s.Outcome,
		ExitStatus: ExitStatus(result),
		Stats: ReportStats{
			Total:    len(result.Tests),
			Passed:   s.Passing,
			Failed:   s.Failing,
			Skipped:  s.Skipped,
			FailRate: s.FailRate,
		},
		Summary: summaryFields(s),
	}

	for i, t := range result.Tests {
		item := ReportTestItem{
			Index:      i + 1,
			Name:       t.FullName,
			ClassName:  t.ClassName(),
			MethodName: t.MethodName(),
			Outcome:    t.Outcome,
			Duration:   time.Duration(t.RunTimeMs) * time.Millisecond,
			Message:    t.Message,
			StackTrace: t.StackTrace,
		}
		data.AllTests = append(data.AllTests, item)
		if item.Failed() {
			data.FailedTests = append(data.FailedTests, item)
		}
	}
	data.HasFailures = len(data.FailedTests) > 0

	for _, c := range result.CodeCoverage {
		data.Coverage = append(data.Coverage, ReportCoverageItem{
			ClassName:      c.ClassName,
			Percentage:     c.Percentage,
			UncoveredLines: c.SortedUncoveredLines(),
		})
	}
	return data
}

func summaryFields(s types.Summary) []SummaryField {
	ms := func(v int64) string { return strconv.FormatInt(v, 10) }
	return []SummaryField{
		{Name: "outcome", Label: "Outcome", Value: string(s.Outcome)},
		{Name: "testsRan", Label: "Tests Ran", Value: strconv.Itoa(s.TestsRan)},
		{Name: "passing", Label: "Passing", Value: strconv.Itoa(s.Passing)},
		{Name: "failing", Label: "Failing", Value: strconv.Itoa(s.Failing)},
		{Name: "skipped", Label: "Skipped", Value: strconv.Itoa(s.Skipped)},
		{Name: "failRate", Label: "Fail Rate", Value: s.FailRate},
		{Name: "testStartTime", Label: "Test Start Time", Value: s.TestStartTime},
		{Name: "testExecutionTimeMs", Label: "Test Execution Time", Value: ms(s.TestExecutionTimeMs), Unit: "ms"},
		{Name: "testTotalTimeMs", Label: "Test Total Time", Value: ms(s.TestTotalTimeMs), Unit: "ms"},
		{Name: "commandTimeMs", Label: "Command Time", Value: ms(s.CommandTimeMs), Unit: "ms"},
		{Name: "hostname", Label: "Hostname", Value: s.Hostname},
		{Name: "testRunId", Label: "Test Run Id", Value: s.TestRunID},
		{Name: "orgId", Label: "Org Id", Value: s.OrgID},
		{Name: "userId", Label: "User Id", Value: s.UserID},
		{Name: "username", Label: "Username", Value: s.Username},
	}
}
