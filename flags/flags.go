package flags

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	"github.com/ethereum-optimism/infra/op-testrun/reporting"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

const EnvVarPrefix = "OP_TESTRUN"

// Target selection and output mode, shared by every command
var (
	TargetsFile = &cli.StringFlag{
		Name:    "targets",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TARGETS"),
		Usage:   "Path to a targets file naming the test services (eg. 'targets.yaml')",
	}
	Target = &cli.StringFlag{
		Name:    "target",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TARGET"),
		Usage:   "Target from the targets file to use. Defaults to the file's default target.",
	}
	Endpoint = &cli.StringFlag{
		Name:    "endpoint",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ENDPOINT"),
		Usage:   "RPC endpoint of the test execution service. Overrides the target's endpoint.",
	}
	Username = &cli.StringFlag{
		Name:    "username",
		Aliases: []string{"o"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "USERNAME"),
		Usage:   "Username the runs are executed as. Overrides the target's username.",
	}
	JSON = &cli.BoolFlag{
		Name:    "json",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JSON"),
		Usage:   "Print the command result as JSON and nothing else",
	}
	MetricsTextfile = &cli.StringFlag{
		Name:    "metrics.textfile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_TEXTFILE"),
		Usage:   "Write the command's metrics in prometheus text format to this file when it exits",
	}
	StatusAddr = &cli.StringFlag{
		Name:    "status.addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STATUS_ADDR"),
		Usage:   "Serve /healthz and /metrics on this address while the command runs (eg. '0.0.0.0:7300'). Empty disables.",
	}
)

// Rendering and persistence, shared by run and report
var (
	ResultFormat = &cli.StringFlag{
		Name:    "result-format",
		Aliases: []string{"r"},
		Value:   string(reporting.FormatHuman),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESULT_FORMAT"),
		Usage:   fmt.Sprintf("Format of the test results (%s)", joinFormats()),
		Action: func(_ *cli.Context, v string) error {
			_, err := reporting.ParseResultFormat(v)
			return err
		},
	}
	CodeCoverage = &cli.BoolFlag{
		Name:    "code-coverage",
		Aliases: []string{"c"},
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CODE_COVERAGE"),
		Usage:   "Retrieve code coverage results",
	}
	DetailedCoverage = &cli.BoolFlag{
		Name:    "detailed-coverage",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DETAILED_COVERAGE"),
		Usage:   "Show the uncovered lines of each class in the coverage table",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Aliases: []string{"d"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_DIR"),
		Usage:   "Directory to write the test result files to",
	}
	Concise = &cli.BoolFlag{
		Name:    "concise",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONCISE"),
		Usage:   "Show only failed test results",
	}
)

// Run selection
var (
	Tests = &cli.StringSliceFlag{
		Name:    "tests",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TESTS"),
		Usage:   "Comma-separated list of tests to run, as namespace.Class.method or namespace.Class",
	}
	ClassNames = &cli.StringSliceFlag{
		Name:    "class-names",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CLASS_NAMES"),
		Usage:   "Comma-separated list of test classes to run",
	}
	SuiteNames = &cli.StringSliceFlag{
		Name:    "suite-names",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUITE_NAMES"),
		Usage:   "Comma-separated list of test suites to run",
	}

	// The specifier shorthands are separate flags rather than aliases so that
	// both forms can be repeated in one invocation.
	TestsShort      = shorthand("t", Tests)
	ClassNamesShort = shorthand("n", ClassNames)
	SuiteNamesShort = shorthand("s", SuiteNames)

	// Shorthands maps each specifier flag to its shorthand
	Shorthands = map[*cli.StringSliceFlag]*cli.StringSliceFlag{
		Tests:      TestsShort,
		ClassNames: ClassNamesShort,
		SuiteNames: SuiteNamesShort,
	}
	TestLevel = &cli.StringFlag{
		Name:    "test-level",
		Aliases: []string{"l"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_LEVEL"),
		Usage:   fmt.Sprintf("Level of tests to run (%s)", joinLevels()),
		Action: func(_ *cli.Context, v string) error {
			_, err := types.ParseTestLevel(v)
			return err
		},
	}
	Synchronous = &cli.BoolFlag{
		Name:    "synchronous",
		Aliases: []string{"y"},
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SYNCHRONOUS"),
		Usage:   "Run tests from a single class synchronously and wait for the result",
	}
	Wait = &cli.StringFlag{
		Name:    "wait",
		Aliases: []string{"w"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WAIT"),
		Usage:   "How long to wait for the run to complete before returning its id, in minutes (e.g. '10') or as a duration (e.g. '90s'). 0 returns immediately.",
		Action: func(_ *cli.Context, v string) error {
			_, err := ParseWait(v)
			return err
		},
	}
	PollInterval = &cli.DurationFlag{
		Name:    "poll-interval",
		Value:   2 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "POLL_INTERVAL"),
		Usage:   "Interval between status checks while waiting for a run",
	}
)

// Report and logs selection
var (
	TestRunID = &cli.StringFlag{
		Name:    "test-run-id",
		Aliases: []string{"i"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_RUN_ID"),
		Usage:   "Id of the test run to report",
	}
	LogID = &cli.StringFlag{
		Name:    "log-id",
		Aliases: []string{"i"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_ID"),
		Usage:   "Id of the debug log to retrieve",
	}
	Number = &cli.IntFlag{
		Name:    "number",
		Aliases: []string{"n"},
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NUMBER"),
		Usage:   "Number of most recent debug logs to retrieve",
	}
)

var commonFlags = []cli.Flag{
	TargetsFile,
	Target,
	Endpoint,
	Username,
	JSON,
	MetricsTextfile,
	StatusAddr,
}

var reportingFlags = []cli.Flag{
	ResultFormat,
	CodeCoverage,
	DetailedCoverage,
	OutputDir,
	Concise,
}

var (
	// Flags are the global flags of the app
	Flags []cli.Flag
	// RunFlags are the flags of the run command
	RunFlags []cli.Flag
	// ReportFlags are the flags of the report command
	ReportFlags []cli.Flag
	// LogsFlags are the flags of the logs command
	LogsFlags []cli.Flag
)

// requiredFlags lists, per command, the flags that must be set
var requiredFlags = map[string][]cli.Flag{
	"report": {TestRunID},
}

func init() {
	Flags = append(Flags, oplog.CLIFlags(EnvVarPrefix)...)

	RunFlags = append(RunFlags, Tests, TestsShort, ClassNames, ClassNamesShort, SuiteNames, SuiteNamesShort, TestLevel, Synchronous, Wait, PollInterval)
	RunFlags = append(RunFlags, reportingFlags...)
	RunFlags = append(RunFlags, commonFlags...)

	ReportFlags = append(ReportFlags, TestRunID)
	ReportFlags = append(ReportFlags, reportingFlags...)
	ReportFlags = append(ReportFlags, commonFlags...)

	LogsFlags = append(LogsFlags, LogID, Number, OutputDir)
	LogsFlags = append(LogsFlags, commonFlags...)
}

// CheckRequired validates that the flags a command depends on are set
func CheckRequired(ctx *cli.Context) error {
	if ctx.Command != nil {
		for _, f := range requiredFlags[ctx.Command.Name] {
			if !ctx.IsSet(f.Names()[0]) {
				return fmt.Errorf("flag %s is required", f.Names()[0])
			}
		}
	}
	if !ctx.IsSet(TargetsFile.Name) && !ctx.IsSet(Endpoint.Name) {
		return fmt.Errorf("one of the flags %s or %s is required", TargetsFile.Name, Endpoint.Name)
	}
	return opflags.CheckRequiredXor(ctx)
}

// CheckSpecifiers rejects runs that select tests in more than one way
func CheckSpecifiers(ctx *cli.Context) error {
	var set []string
	for _, f := range []*cli.StringSliceFlag{Tests, ClassNames, SuiteNames} {
		if ctx.IsSet(f.Name) || ctx.IsSet(Shorthands[f].Name) {
			set = append(set, f.Name)
		}
	}
	if len(set) > 1 {
		return types.NewInvalidCombinationError(types.RuleMutuallyExclusiveSpecifiers)
	}
	return nil
}

// Specifiers returns the raw values of the specifier flags. Values given with
// the long form come before those given with the shorthand.
func Specifiers(ctx *cli.Context) types.Specifiers {
	values := func(f *cli.StringSliceFlag) []string {
		return append(append([]string{}, ctx.StringSlice(f.Name)...), ctx.StringSlice(Shorthands[f].Name)...)
	}
	return types.Specifiers{
		Tests:      values(Tests),
		ClassNames: values(ClassNames),
		SuiteNames: values(SuiteNames),
	}
}

// ParseWait reads a wait value: a bare number is minutes, anything else
// must be a duration such as "90s" or "1h".
func ParseWait(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	var d time.Duration
	if minutes, err := strconv.Atoi(v); err == nil {
		d = time.Duration(minutes) * time.Minute
	} else {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid wait %q: expected minutes or a duration", v)
		}
		d = parsed
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid wait %q: must not be negative", v)
	}
	return d, nil
}

func shorthand(name string, long *cli.StringSliceFlag) *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:  name,
		Usage: fmt.Sprintf("Shorthand for --%s", long.Name),
	}
}

func joinFormats() string {
	names := make([]string, len(reporting.ResultFormats))
	for i, f := range reporting.ResultFormats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func joinLevels() string {
	names := make([]string, len(types.TestLevels))
	for i, l := range types.TestLevels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}
