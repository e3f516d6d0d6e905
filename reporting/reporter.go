// Package reporting renders completed test runs and persists the artifacts.
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-testrun/metrics"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// BinaryName is the command shown in follow-up instructions
const BinaryName = "op-testrun"

const (
	RunIDArtifact    = "test-run-id.txt"
	CoverageArtifact = "test-result-codecoverage.json"
)

// Options controls how a result is rendered and where it is persisted
type Options struct {
	OutputDir        string
	ResultFormat     ResultFormat
	JSONEnabled      bool // machine output mode, the caller serializes the result
	CodeCoverage     bool
	DetailedCoverage bool
	Concise          bool
	Color            bool
}

// Reporter renders results to an output stream and optionally to disk
type Reporter struct {
	log log.Logger
	out io.Writer
}

// NewReporter creates a reporter printing to out. A nil out prints to stdout.
func NewReporter(logger log.Logger, out io.Writer) *Reporter {
	if logger == nil {
		logger = log.New()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{log: logger, out: out}
}

// Report renders result in the selected format, prints it unless machine
// output is enabled, and writes the artifacts when an output directory is
// set. The result is returned unchanged.
func (r *Reporter) Report(result *types.TestResult, opts Options) (*types.TestResult, error) {
	format := opts.ResultFormat
	if format == "" {
		format = FormatHuman
	}

	data := BuildReportData(result)
	formatter, err := NewFormatter(format, FormatterOptions{
		CodeCoverage:     opts.CodeCoverage,
		DetailedCoverage: opts.DetailedCoverage,
		Concise:          opts.Concise,
		Color:            opts.Color && !opts.JSONEnabled,
	})
	if err != nil {
		return nil, err
	}
	rendered, err := formatter.Format(data)
	if err != nil {
		return nil, fmt.Errorf("failed to format %s report: %w", format, err)
	}

	if !opts.JSONEnabled {
		if _, err := io.WriteString(r.out, rendered); err != nil {
			return nil, fmt.Errorf("failed to print report: %w", err)
		}
	}

	if opts.OutputDir != "" {
		if err := r.persist(data, format, stripansi.Strip(rendered), opts); err != nil {
			metrics.RecordErrorDetails("persist", err)
			return nil, err
		}
	}

	metrics.RecordReport(string(format), data.ExitStatus, result)
	r.log.Debug("Reported test run", "run", data.RunID, "format", format, "status", data.ExitStatus)
	return result, nil
}

func (r *Reporter) persist(data *ReportData, format ResultFormat, rendered string, opts Options) error {
	sink, err := OpenDir(opts.OutputDir)
	if err != nil {
		return err
	}

	if err := sink.WriteArtifact(RunIDArtifact, []byte(data.RunID)); err != nil {
		return err
	}
	if err := sink.WriteArtifact(artifactName(format, data.RunID), []byte(rendered)); err != nil {
		return err
	}
	if opts.CodeCoverage {
		coverage := data.Result.CodeCoverage
		if coverage == nil {
			coverage = []types.CoverageRecord{}
		}
		content, err := json.MarshalIndent(coverage, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal code coverage: %w", err)
		}
		if err := sink.WriteArtifact(CoverageArtifact, content); err != nil {
			return err
		}
	}

	if !opts.JSONEnabled {
		fmt.Fprintf(r.out, "Test result files written to %s\n", sink.Dir())
	}
	r.log.Info("Wrote test result files", "dir", sink.Dir(), "run", data.RunID)
	return nil
}

// PersistRunID writes only the run id artifact, for runs that are still pending
func PersistRunID(dir, runID string) error {
	sink, err := OpenDir(dir)
	if err != nil {
		return err
	}
	return sink.WriteArtifact(RunIDArtifact, []byte(runID))
}
