package testrun

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	"github.com/ethereum-optimism/infra/op-testrun/flags"
	"github.com/ethereum-optimism/infra/op-testrun/reporting"
	"github.com/ethereum-optimism/infra/op-testrun/resolver"
	"github.com/ethereum-optimism/infra/op-testrun/targets"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// Config holds the settings shared by every command
type Config struct {
	Endpoint        string
	Username        string
	OrgID           string
	JSON            bool   // machine output mode
	Color           bool   // colourize human output
	MetricsTextfile string // prometheus textfile written on exit, if set
	StatusAddr      string // address of the /healthz and /metrics server, if set
	Log             log.Logger
}

// ReportingConfig holds how results are rendered and persisted
type ReportingConfig struct {
	ResultFormat     reporting.ResultFormat
	CodeCoverage     bool
	DetailedCoverage bool
	Concise          bool
	OutputDir        string
}

// RunConfig configures the run command
type RunConfig struct {
	Config
	ReportingConfig
	Plan         *types.RunPlan
	PollInterval time.Duration
}

// ReportConfig configures the report command
type ReportConfig struct {
	Config
	ReportingConfig
	TestRunID string
}

// LogsConfig configures the logs command
type LogsConfig struct {
	Config
	LogID     string
	Number    int
	OutputDir string
}

// NewConfig creates the shared Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		JSON:            ctx.Bool(flags.JSON.Name),
		Color:           ctx.Bool(oplog.ColorFlagName),
		MetricsTextfile: ctx.String(flags.MetricsTextfile.Name),
		StatusAddr:      ctx.String(flags.StatusAddr.Name),
		Log:             log,
	}

	if path := ctx.String(flags.TargetsFile.Name); path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for targets file '%s': %w", path, err)
		}
		registry, err := targets.NewRegistry(targets.Config{Log: log, TargetFile: absPath})
		if err != nil {
			return nil, err
		}
		target, err := registry.Get(ctx.String(flags.Target.Name))
		if err != nil {
			return nil, err
		}
		cfg.Endpoint = target.Endpoint
		cfg.Username = target.Username
		cfg.OrgID = target.OrgID
	}

	if ctx.IsSet(flags.Endpoint.Name) {
		cfg.Endpoint = ctx.String(flags.Endpoint.Name)
	}
	if ctx.IsSet(flags.Username.Name) {
		cfg.Username = ctx.String(flags.Username.Name)
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("no endpoint configured for the test service")
	}

	return cfg, nil
}

func newReportingConfig(ctx *cli.Context) (ReportingConfig, error) {
	format, err := reporting.ParseResultFormat(ctx.String(flags.ResultFormat.Name))
	if err != nil {
		return ReportingConfig{}, err
	}
	outputDir, err := absOutputDir(ctx.String(flags.OutputDir.Name))
	if err != nil {
		return ReportingConfig{}, err
	}
	return ReportingConfig{
		ResultFormat:     format,
		CodeCoverage:     ctx.Bool(flags.CodeCoverage.Name),
		DetailedCoverage: ctx.Bool(flags.DetailedCoverage.Name),
		Concise:          ctx.Bool(flags.Concise.Name),
		OutputDir:        outputDir,
	}, nil
}

func absOutputDir(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for output directory '%s': %w", dir, err)
	}
	return abs, nil
}

// NewRunConfig creates a RunConfig from cli context
func NewRunConfig(ctx *cli.Context, log log.Logger) (*RunConfig, error) {
	cfg, err := NewConfig(ctx, log)
	if err != nil {
		return nil, err
	}
	reportingCfg, err := newReportingConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := flags.CheckSpecifiers(ctx); err != nil {
		return nil, err
	}

	level, err := types.ParseTestLevel(ctx.String(flags.TestLevel.Name))
	if err != nil {
		return nil, err
	}
	wait, err := flags.ParseWait(ctx.String(flags.Wait.Name))
	if err != nil {
		return nil, err
	}
	specifiers := flags.Specifiers(ctx)
	plan, err := resolver.NewRunPlan(resolver.Options{
		Tests:        specifiers.Tests,
		ClassNames:   specifiers.ClassNames,
		SuiteNames:   specifiers.SuiteNames,
		TestLevel:    level,
		Synchronous:  ctx.Bool(flags.Synchronous.Name),
		CodeCoverage: reportingCfg.CodeCoverage,
		Wait:         wait,
	})
	if err != nil {
		return nil, err
	}

	return &RunConfig{
		Config:          *cfg,
		ReportingConfig: reportingCfg,
		Plan:            plan,
		PollInterval:    ctx.Duration(flags.PollInterval.Name),
	}, nil
}

// NewReportConfig creates a ReportConfig from cli context
func NewReportConfig(ctx *cli.Context, log log.Logger) (*ReportConfig, error) {
	cfg, err := NewConfig(ctx, log)
	if err != nil {
		return nil, err
	}
	reportingCfg, err := newReportingConfig(ctx)
	if err != nil {
		return nil, err
	}
	runID := ctx.String(flags.TestRunID.Name)
	if runID == "" {
		return nil, errors.New("test run id is required")
	}
	return &ReportConfig{
		Config:          *cfg,
		ReportingConfig: reportingCfg,
		TestRunID:       runID,
	}, nil
}

// NewLogsConfig creates a LogsConfig from cli context
func NewLogsConfig(ctx *cli.Context, log log.Logger) (*LogsConfig, error) {
	cfg, err := NewConfig(ctx, log)
	if err != nil {
		return nil, err
	}
	outputDir, err := absOutputDir(ctx.String(flags.OutputDir.Name))
	if err != nil {
		return nil, err
	}
	number := ctx.Int(flags.Number.Name)
	if number < 0 {
		return nil, fmt.Errorf("number of logs must not be negative, got %d", number)
	}
	return &LogsConfig{
		Config:    *cfg,
		LogID:     ctx.String(flags.LogID.Name),
		Number:    number,
		OutputDir: outputDir,
	}, nil
}

// ReportOptions returns the reporter options for this configuration
func (c ReportingConfig) ReportOptions(jsonEnabled, color bool) reporting.Options {
	return reporting.Options{
		OutputDir:        c.OutputDir,
		ResultFormat:     c.ResultFormat,
		JSONEnabled:      jsonEnabled,
		CodeCoverage:     c.CodeCoverage,
		DetailedCoverage: c.DetailedCoverage,
		Concise:          c.Concise,
		Color:            color,
	}
}
