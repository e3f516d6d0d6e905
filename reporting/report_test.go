package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

func newTestResult(outcomes ...types.Outcome) *types.TestResult {
	result := &types.TestResult{
		Summary: types.Summary{
			Outcome:             types.OutcomePass,
			FailRate:            "0%",
			TestRunID:           "707xx0000000001",
			TestStartTime:       "2024-05-02T10:00:00.000Z",
			TestExecutionTimeMs: 1234,
			TestTotalTimeMs:     2345,
			CommandTimeMs:       345,
			Hostname:            "https://example.my.org.com",
			OrgID:               "00Dxx0000000001",
			UserID:              "005xx0000000001",
			Username:            "test@user.com",
		},
		CodeCoverage: []types.CoverageRecord{
			{ClassName: "MyFlow", Percentage: "75%", UncoveredLines: []int{9, 3, 3}},
		},
	}
	for i, o := range outcomes {
		test := types.TestOutcome{
			FullName:  "flowtesting.MyFlow.test" + string(rune('A'+i)),
			Outcome:   o,
			RunTimeMs: int64(10 * (i + 1)),
		}
		switch o {
		case types.OutcomePass:
			result.Summary.Passing++
		case types.OutcomeFail:
			result.Summary.Failing++
			result.Summary.Outcome = types.OutcomeFail
			test.Message = "assertion failed"
			test.StackTrace = "at line 4"
		case types.OutcomeSkip:
			result.Summary.Skipped++
		}
		result.Summary.TestsRan++
		result.Tests = append(result.Tests, test)
	}
	return result
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		result   *types.TestResult
		expected int
	}{
		{"pass", newTestResult(types.OutcomePass, types.OutcomePass), 0},
		{"fail", newTestResult(types.OutcomePass, types.OutcomeFail), 100},
		{"empty", newTestResult(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitStatus(tt.result))
		})
	}

	t.Run("completed with failures", func(t *testing.T) {
		r := newTestResult(types.OutcomePass)
		r.Summary.Outcome = types.OutcomeCompletedWithFailures
		assert.Equal(t, 100, ExitStatus(r))
	})
}

func TestBuildReportData(t *testing.T) {
	result := newTestResult(types.OutcomePass, types.OutcomeFail, types.OutcomeSkip)
	data := BuildReportData(result)

	assert.Equal(t, "707xx0000000001", data.RunID)
	assert.Equal(t, 100, data.ExitStatus)
	assert.True(t, data.HasFailures)
	assert.Equal(t, ReportStats{Total: 3, Passed: 1, Failed: 1, Skipped: 1, FailRate: "0%"}, data.Stats)

	require.Len(t, data.AllTests, 3)
	assert.Equal(t, 1, data.AllTests[0].Index)
	assert.Equal(t, "flowtesting.MyFlow", data.AllTests[1].ClassName)
	assert.Equal(t, "testB", data.AllTests[1].MethodName)
	assert.Equal(t, 20*time.Millisecond, data.AllTests[1].Duration)

	require.Len(t, data.FailedTests, 1)
	assert.Equal(t, 2, data.FailedTests[0].Index)

	require.Len(t, data.Coverage, 1)
	assert.Equal(t, []int{3, 9}, data.Coverage[0].UncoveredLines)

	require.Len(t, data.Summary, 15)
	assert.Equal(t, "outcome", data.Summary[0].Name)
	for _, f := range data.Summary {
		if f.Name == "commandTimeMs" {
			assert.Equal(t, "345", f.Value)
			assert.Equal(t, "345 ms", f.Display())
		}
	}
}
