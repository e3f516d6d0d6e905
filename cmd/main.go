package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	testrun "github.com/ethereum-optimism/infra/op-testrun"
	"github.com/ethereum-optimism/infra/op-testrun/backend"
	"github.com/ethereum-optimism/infra/op-testrun/cancellation"
	"github.com/ethereum-optimism/infra/op-testrun/flags"
	"github.com/ethereum-optimism/infra/op-testrun/metrics"
	"github.com/ethereum-optimism/infra/op-testrun/orchestrator"
	"github.com/ethereum-optimism/infra/op-testrun/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), testrun.ExitCode(err)))
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-testrun"
	app.Usage = "Run remote test suites and report their results"
	app.Description = "op-testrun submits test runs to a remote test execution service, waits for them and reports the results as tables, TAP, JUnit XML or JSON"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "Run tests and report the result, or the id of the pending run",
			Flags:  cliapp.ProtectFlags(flags.RunFlags),
			Action: runTests,
		},
		{
			Name:   "report",
			Usage:  "Report the result of an earlier test run",
			Flags:  cliapp.ProtectFlags(flags.ReportFlags),
			Action: getReport,
		},
		{
			Name:   "logs",
			Usage:  "Fetch debug logs from the test service",
			Flags:  cliapp.ProtectFlags(flags.LogsFlags),
			Action: getLogs,
		},
	}
	return app
}

func newLogger(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(ctx.App.ErrWriter, logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()
	return logger.New("invocation", uuid.New().String())
}

func runTests(ctx *cli.Context) error {
	logger := newLogger(ctx)
	cfg, err := testrun.NewRunConfig(ctx, logger)
	if err != nil {
		return err
	}
	cfg.Log.Debug("Config", "plan", cfg.Plan, "endpoint", cfg.Endpoint)

	client, err := backend.Dial(ctx.Context, cfg.Endpoint, logger)
	if err != nil {
		return testrun.NewRuntimeError(err)
	}
	defer client.Close()

	token := cancellation.NewToken()
	signals := orchestrator.NewSignalHandler(token, logger, nil)
	signals.Start()
	defer signals.Stop()

	return execute(ctx.App.Writer, cfg.Config, func() (*testrun.CommandResult, error) {
		return testrun.RunTests(ctx.Context, cfg, client, token, ctx.App.Writer)
	})
}

func getReport(ctx *cli.Context) error {
	logger := newLogger(ctx)
	cfg, err := testrun.NewReportConfig(ctx, logger)
	if err != nil {
		return err
	}

	client, err := backend.Dial(ctx.Context, cfg.Endpoint, logger)
	if err != nil {
		return testrun.NewRuntimeError(err)
	}
	defer client.Close()

	return execute(ctx.App.Writer, cfg.Config, func() (*testrun.CommandResult, error) {
		return testrun.GetReport(ctx.Context, cfg, client, ctx.App.Writer)
	})
}

func getLogs(ctx *cli.Context) error {
	logger := newLogger(ctx)
	cfg, err := testrun.NewLogsConfig(ctx, logger)
	if err != nil {
		return err
	}

	client, err := backend.Dial(ctx.Context, cfg.Endpoint, logger)
	if err != nil {
		return testrun.NewRuntimeError(err)
	}
	defer client.Close()

	return execute(ctx.App.Writer, cfg.Config, func() (*testrun.CommandResult, error) {
		return testrun.GetLogs(ctx.Context, cfg, client, ctx.App.Writer)
	})
}

// execute runs a command with the status server up, prints the machine
// output when enabled and writes the metrics textfile on the way out.
func execute(out io.Writer, cfg testrun.Config, command func() (*testrun.CommandResult, error)) error {
	if cfg.StatusAddr != "" {
		svc := service.New(cfg.StatusAddr, cfg.Log)
		if err := svc.Start(); err != nil {
			return testrun.NewRuntimeError(err)
		}
		defer svc.Shutdown()
	}
	if cfg.MetricsTextfile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
				cfg.Log.Warn("Failed to write metrics", "err", err)
			}
		}()
	}

	res, err := command()
	if err != nil {
		metrics.RecordErrorDetails("command", err)
		return err
	}

	if cfg.JSON {
		encoded, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return testrun.NewRuntimeError(fmt.Errorf("failed to marshal result: %w", err))
		}
		fmt.Fprintln(out, string(encoded))
	}
	return res.Err()
}
