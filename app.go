// Package testrun wires the resolver, orchestrator and reporter into the
// run, report and logs commands.
package testrun

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum-optimism/infra/op-testrun/cancellation"
	"github.com/ethereum-optimism/infra/op-testrun/exitcodes"
	"github.com/ethereum-optimism/infra/op-testrun/logs"
	"github.com/ethereum-optimism/infra/op-testrun/orchestrator"
	"github.com/ethereum-optimism/infra/op-testrun/payload"
	"github.com/ethereum-optimism/infra/op-testrun/reporting"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// CommandResult is what a command hands back for machine output
type CommandResult struct {
	Status int         `json:"status"`
	Result interface{} `json:"result"`
}

// Err returns the error the command should exit with, if any
func (r *CommandResult) Err() error {
	if r.Status == exitcodes.Success {
		return nil
	}
	if result, ok := r.Result.(*types.TestResult); ok {
		return NewTestFailureError(result.RunID(), len(result.FailedTests()))
	}
	return NewTestFailureError("", 0)
}

// ResultFetcher fetches the result of a finished run
type ResultFetcher interface {
	Report(ctx context.Context, runID string, codeCoverage bool) (*types.TestResult, error)
}

// RunTests resolves, executes and reports one test run. A completed run is
// reported; a pending run only prints how to retrieve its results later.
func RunTests(ctx context.Context, cfg *RunConfig, backend orchestrator.Backend, token *cancellation.Token, out io.Writer) (*CommandResult, error) {
	orch, err := orchestrator.New(orchestrator.Config{
		Log:          cfg.Log,
		Backend:      backend,
		Builder:      payload.NewBuilder(),
		Token:        token,
		PollInterval: cfg.PollInterval,
		JSONEnabled:  cfg.JSON,
	})
	if err != nil {
		return nil, NewRuntimeError(err)
	}

	outcome, err := orch.Run(ctx, cfg.Plan)
	if err != nil {
		return nil, err
	}

	switch o := outcome.(type) {
	case *types.TestResult:
		return report(cfg.Config, cfg.ReportingConfig, o, out)
	case types.PendingRun:
		if !cfg.JSON {
			printPending(out, o.TestRunID, cfg.Username)
		}
		if cfg.OutputDir != "" {
			if err := reporting.PersistRunID(cfg.OutputDir, o.TestRunID); err != nil {
				return nil, err
			}
		}
		return &CommandResult{Status: exitcodes.Success, Result: o}, nil
	default:
		return nil, fmt.Errorf("unexpected run outcome %T", outcome)
	}
}

// GetReport fetches and reports the result of an earlier run
func GetReport(ctx context.Context, cfg *ReportConfig, fetcher ResultFetcher, out io.Writer) (*CommandResult, error) {
	result, err := fetcher.Report(ctx, cfg.TestRunID, cfg.CodeCoverage)
	if err != nil {
		return nil, err
	}
	return report(cfg.Config, cfg.ReportingConfig, result, out)
}

// GetLogs fetches debug logs and prints or persists them
func GetLogs(ctx context.Context, cfg *LogsConfig, fetcher logs.Fetcher, out io.Writer) (*CommandResult, error) {
	w := out
	if cfg.JSON {
		w = io.Discard
	}
	result, err := logs.NewGetter(cfg.Log, fetcher, w).Get(ctx, logs.Options{
		LogID:     cfg.LogID,
		Number:    cfg.Number,
		OutputDir: cfg.OutputDir,
		Color:     cfg.Color,
	})
	if err != nil {
		return nil, err
	}
	return &CommandResult{Status: exitcodes.Success, Result: result}, nil
}

func report(cfg Config, reportingCfg ReportingConfig, result *types.TestResult, out io.Writer) (*CommandResult, error) {
	reporter := reporting.NewReporter(cfg.Log, out)
	reported, err := reporter.Report(result, reportingCfg.ReportOptions(cfg.JSON, cfg.Color))
	if err != nil {
		return nil, err
	}
	return &CommandResult{Status: reporting.ExitStatus(reported), Result: reported}, nil
}

func printPending(out io.Writer, runID, username string) {
	command := fmt.Sprintf("%s report -i %s", reporting.BinaryName, runID)
	if username != "" {
		command += " -o " + username
	}
	fmt.Fprintf(out, "Run \"%s\" to retrieve test results\n", command)
	fmt.Fprintln(out, "Use --synchronous or --wait to wait for the test results instead")
}
