package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testrun "github.com/ethereum-optimism/infra/op-testrun"
	"github.com/ethereum-optimism/infra/op-testrun/backend/backendtest"
	"github.com/ethereum-optimism/infra/op-testrun/exitcodes"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

func serve(t *testing.T, svc *backendtest.Service) string {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("testrun", svc))
	t.Cleanup(srv.Stop)
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)
	return httpSrv.URL
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"op-testrun"}, args...))
	return out.String(), err
}

func newService(outcome types.Outcome) *backendtest.Service {
	result := types.TestResult{
		Summary: types.Summary{Outcome: outcome, TestsRan: 1, FailRate: "0%", Username: "test@user.com"},
		Tests:   []types.TestOutcome{{FullName: "flowtesting.MyFlow.testA", Outcome: types.OutcomePass, RunTimeMs: 12}},
	}
	if outcome == types.OutcomeFail {
		result.Tests[0].Outcome = types.OutcomeFail
	}
	return &backendtest.Service{Result: result}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		outcome  types.Outcome
		expected int
	}{
		{"passing run exits 0", types.OutcomePass, exitcodes.Success},
		{"failing run exits 100", types.OutcomeFail, exitcodes.TestFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := serve(t, newService(tt.outcome))
			out, err := runApp(t, "run", "--endpoint", endpoint, "-n", "flowtesting.MyFlow", "-y", "-r", "tap")
			assert.Equal(t, tt.expected, testrun.ExitCode(err))
			assert.Contains(t, out, "1..1\n")
		})
	}
}

func TestRunPendingJSON(t *testing.T) {
	endpoint := serve(t, newService(types.OutcomePass))
	out, err := runApp(t, "run", "--endpoint", endpoint, "--json")
	require.NoError(t, err)

	var printed struct {
		Status int              `json:"status"`
		Result types.PendingRun `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &printed))
	assert.Equal(t, 0, printed.Status)
	assert.NotEmpty(t, printed.Result.TestRunID)
}

func TestRunInvalidCombination(t *testing.T) {
	endpoint := serve(t, newService(types.OutcomePass))

	_, err := runApp(t, "run", "--endpoint", endpoint, "-n", "ns.A,ns.B", "-y")
	require.Error(t, err)
	assert.True(t, types.IsInvalidCombination(err))
	assert.Equal(t, exitcodes.RuntimeErr, testrun.ExitCode(err))

	_, err = runApp(t, "run", "--endpoint", endpoint, "-n", "ns.A", "-l", "RunLocalTests")
	require.Error(t, err)
	assert.Contains(t, err.Error(), types.RuleSpecifierRequiresSpecifiedTests)
}

func TestReportWritesArtifactsAndMetrics(t *testing.T) {
	endpoint := serve(t, newService(types.OutcomePass))
	dir := t.TempDir()
	textfile := filepath.Join(dir, "metrics.prom")

	out, err := runApp(t, "report", "--endpoint", endpoint, "-i", "707xx0000000007",
		"-d", filepath.Join(dir, "results"), "-r", "junit", "--metrics.textfile", textfile)
	require.NoError(t, err)
	assert.Contains(t, out, "<testsuites>")

	assert.FileExists(t, filepath.Join(dir, "results", "test-run-id.txt"))
	assert.FileExists(t, filepath.Join(dir, "results", "test-result-707xx0000000007-junit.xml"))

	metricsOut, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsOut), "testrun_reports_total")
}

func TestReportRequiresRunID(t *testing.T) {
	_, err := runApp(t, "report", "--endpoint", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test-run-id")
}

func TestReportFromTargetsFile(t *testing.T) {
	endpoint := serve(t, newService(types.OutcomePass))
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: local\ntargets:\n  - name: local\n    endpoint: "+endpoint+"\n"), 0644))

	out, err := runApp(t, "report", "--targets", path, "-i", "707xx0000000008", "--concise")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Test Summary")
	assert.NotContains(t, out, "=== Test Results")
}

func TestLogs(t *testing.T) {
	svc := &backendtest.Service{}
	endpoint := serve(t, svc)

	out, err := runApp(t, "logs", "--endpoint", endpoint, "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, "No results found\n", out)
}
