package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRunOutcome(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantPending bool
		wantRunID   string
		wantErr     bool
	}{
		{
			name:      "completed run",
			data:      `{"summary":{"outcome":"Pass","testRunId":"707xx0000AUS2gH","testsRan":1},"tests":[{"fullName":"ns.Cls.m","outcome":"Pass","runTimeMs":53}]}`,
			wantRunID: "707xx0000AUS2gH",
		},
		{
			name:        "pending run",
			data:        `{"testRunId":"707xx0000AUS2gH"}`,
			wantPending: true,
			wantRunID:   "707xx0000AUS2gH",
		},
		{
			name:    "neither shape",
			data:    `{"tests":[]}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			data:    `[1,2]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := DecodeRunOutcome([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRunID, outcome.RunID())

			switch o := outcome.(type) {
			case *TestResult:
				assert.False(t, tt.wantPending)
				assert.Len(t, o.Tests, 1)
			case PendingRun:
				assert.True(t, tt.wantPending)
			default:
				t.Fatalf("unexpected outcome type %T", outcome)
			}
		})
	}
}

func TestTestOutcomeNames(t *testing.T) {
	o := TestOutcome{FullName: "flowtesting.MyFlowTests.testConfig"}
	assert.Equal(t, "flowtesting.MyFlowTests", o.ClassName())
	assert.Equal(t, "testConfig", o.MethodName())

	bare := TestOutcome{FullName: "testConfig"}
	assert.Equal(t, "", bare.ClassName())
	assert.Equal(t, "testConfig", bare.MethodName())
}

func TestSortedUncoveredLines(t *testing.T) {
	c := CoverageRecord{UncoveredLines: []int{9, 3, 3, 7, 1}}
	assert.Equal(t, []int{1, 3, 7, 9}, c.SortedUncoveredLines())
	assert.Empty(t, CoverageRecord{}.SortedUncoveredLines())
}

func TestTestResultFailures(t *testing.T) {
	r := &TestResult{Tests: []TestOutcome{
		{FullName: "a.B.pass", Outcome: OutcomePass},
		{FullName: "a.B.fail", Outcome: OutcomeFail},
		{FullName: "a.B.skip", Outcome: OutcomeSkip},
	}}
	assert.True(t, r.HasFailures())
	require.Len(t, r.FailedTests(), 1)
	assert.Equal(t, "a.B.fail", r.FailedTests()[0].FullName)

	passing := &TestResult{Tests: []TestOutcome{{Outcome: OutcomePass}}}
	assert.False(t, passing.HasFailures())
	assert.Empty(t, passing.FailedTests())
}

func TestParseTestLevel(t *testing.T) {
	level, err := ParseTestLevel("RunAllTestsInOrg")
	require.NoError(t, err)
	assert.Equal(t, TestLevelRunAllTestsInOrg, level)

	level, err = ParseTestLevel("")
	require.NoError(t, err)
	assert.Equal(t, TestLevel(""), level)

	_, err = ParseTestLevel("RunEverything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RunSpecifiedTests")
}

func TestRunsSynchronously(t *testing.T) {
	assert.True(t, (&RunPlan{Synchronous: true, TestLevel: TestLevelRunSpecifiedTests}).RunsSynchronously())
	assert.False(t, (&RunPlan{Synchronous: true, TestLevel: TestLevelRunLocalTests}).RunsSynchronously())
	assert.False(t, (&RunPlan{TestLevel: TestLevelRunSpecifiedTests}).RunsSynchronously())
}

func TestErrorTaxonomy(t *testing.T) {
	err := NewInvalidCombinationError(RuleSyncSingleClassOnly)
	assert.True(t, IsInvalidCombination(err))
	assert.Contains(t, err.Error(), RuleSyncSingleClassOnly)

	ioErr := &IoError{Path: "/tmp/x", Err: assert.AnError}
	assert.True(t, IsIoError(ioErr))
	assert.ErrorIs(t, ioErr, assert.AnError)

	remote := &RemoteExecutionError{Op: "submit", Err: assert.AnError}
	assert.True(t, IsRemoteExecutionError(remote))
	assert.False(t, IsIoError(remote))
}
