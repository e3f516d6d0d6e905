package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

func newTestReporter() (*Reporter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewReporter(log.NewLogger(log.DiscardHandler()), &out), &out
}

func TestReportPrintsAndReturnsResult(t *testing.T) {
	r, out := newTestReporter()
	result := newTestResult(types.OutcomePass)

	got, err := r.Report(result, Options{ResultFormat: FormatTAP})
	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.Contains(t, out.String(), "1..1\nok 1 flowtesting.MyFlow.testA\n")
}

func TestReportJSONEnabledPrintsNothing(t *testing.T) {
	r, out := newTestReporter()
	dir := t.TempDir()

	_, err := r.Report(newTestResult(types.OutcomePass), Options{ResultFormat: FormatHuman, JSONEnabled: true, OutputDir: dir})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.FileExists(t, filepath.Join(dir, RunIDArtifact))
}

func TestReportJSONFormat(t *testing.T) {
	r, out := newTestReporter()

	_, err := r.Report(newTestResult(types.OutcomeFail), Options{ResultFormat: FormatJSON})
	require.NoError(t, err)

	var decoded JSONReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 100, decoded.Status)
	assert.Equal(t, "707xx0000000001", decoded.Result.Summary.TestRunID)
}

func TestReportPersistsArtifacts(t *testing.T) {
	tests := []struct {
		format   ResultFormat
		artifact string
	}{
		{FormatHuman, "test-result-707xx0000000001.txt"},
		{FormatTAP, "test-result-707xx0000000001-tap.txt"},
		{FormatJUnit, "test-result-707xx0000000001-junit.xml"},
		{FormatJSON, "test-result-707xx0000000001.json"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			r, out := newTestReporter()
			dir := filepath.Join(t.TempDir(), "nested", "results")

			_, err := r.Report(newTestResult(types.OutcomePass, types.OutcomeFail), Options{
				ResultFormat: tt.format,
				OutputDir:    dir,
				CodeCoverage: true,
			})
			require.NoError(t, err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 3)

			runID, err := os.ReadFile(filepath.Join(dir, RunIDArtifact))
			require.NoError(t, err)
			assert.Equal(t, "707xx0000000001", string(runID))

			rendered, err := os.ReadFile(filepath.Join(dir, tt.artifact))
			require.NoError(t, err)
			printed := out.String()
			assert.Contains(t, printed, string(rendered))
			assert.Contains(t, printed, "Test result files written to "+dir)

			raw, err := os.ReadFile(filepath.Join(dir, CoverageArtifact))
			require.NoError(t, err)
			var coverage []types.CoverageRecord
			require.NoError(t, json.Unmarshal(raw, &coverage))
			require.Len(t, coverage, 1)
			assert.Equal(t, "MyFlow", coverage[0].ClassName)
		})
	}
}

func TestReportWithoutCoverageWritesTwoArtifacts(t *testing.T) {
	r, _ := newTestReporter()
	dir := t.TempDir()

	_, err := r.Report(newTestResult(types.OutcomePass), Options{ResultFormat: FormatJUnit, OutputDir: dir})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.NoFileExists(t, filepath.Join(dir, CoverageArtifact))
}

func TestReportStripsColorFromArtifacts(t *testing.T) {
	text.EnableColors()
	r, out := newTestReporter()
	dir := t.TempDir()

	_, err := r.Report(newTestResult(types.OutcomeFail), Options{ResultFormat: FormatHuman, OutputDir: dir, Color: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "\x1b[")

	rendered, err := os.ReadFile(filepath.Join(dir, "test-result-707xx0000000001.txt"))
	require.NoError(t, err)
	assert.NotContains(t, string(rendered), "\x1b[")
	assert.Contains(t, string(rendered), "flowtesting.MyFlow.testA")
}

func TestReportIoError(t *testing.T) {
	r, _ := newTestReporter()
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := r.Report(newTestResult(types.OutcomePass), Options{OutputDir: filepath.Join(file, "out")})
	require.Error(t, err)
	assert.True(t, types.IsIoError(err))
}

func TestReportKeepsArtifactsWrittenBeforeFailure(t *testing.T) {
	r, _ := newTestReporter()
	dir := t.TempDir()
	// a directory in place of the coverage file makes the last write fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, CoverageArtifact), 0755))

	_, err := r.Report(newTestResult(types.OutcomePass), Options{ResultFormat: FormatTAP, OutputDir: dir, CodeCoverage: true})
	require.Error(t, err)
	assert.True(t, types.IsIoError(err))
	assert.FileExists(t, filepath.Join(dir, RunIDArtifact))
	assert.FileExists(t, filepath.Join(dir, "test-result-707xx0000000001-tap.txt"))
}

func TestPersistRunID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pending")
	require.NoError(t, PersistRunID(dir, "707xx0000000009"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(dir, RunIDArtifact))
	require.NoError(t, err)
	assert.Equal(t, "707xx0000000009", string(content))
}
