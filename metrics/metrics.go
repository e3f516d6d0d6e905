package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-testrun/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "testrun"
)

// Run outcome labels
const (
	RunCompleted = "completed"
	RunPending   = "pending"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

var (
	Debug                bool = true
	validOutcomes             = []types.Outcome{types.OutcomePass, types.OutcomeFail, types.OutcomeSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	// Registry holds every op-testrun metric
	Registry = prometheus.NewRegistry()
	factory  = promauto.With(Registry)

	errorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of test runs by execution path and outcome",
	}, []string{
		"path",
		"test_level",
		"outcome",
	})

	pollsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "polls_total",
		Help:      "Count of status polls against the remote service",
	})

	testsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of reported tests by outcome",
	}, []string{
		"outcome",
	})

	reportsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "reports_total",
		Help:      "Count of rendered reports by format and exit status",
	}, []string{
		"format",
		"status",
	})

	runDuration = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Local wall time spent driving the last run",
	}, []string{
		"path",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordRun records how a run was driven and how it ended
func RecordRun(path string, level types.TestLevel, outcome string, duration time.Duration) {
	runsTotal.WithLabelValues(path, string(level), outcome).Inc()
	runDuration.WithLabelValues(path).Set(duration.Seconds())
}

func RecordPoll() {
	pollsTotal.Inc()
}

// RecordReport records a rendered report and the outcome of each of its tests
func RecordReport(format string, status int, result *types.TestResult) {
	reportsTotal.WithLabelValues(format, fmt.Sprint(status)).Inc()
	for _, test := range result.Tests {
		if !isValidOutcome(test.Outcome) {
			log.Error("RecordReport - invalid test outcome", "test", test.FullName, "outcome", test.Outcome)
			continue
		}
		testsTotal.WithLabelValues(string(test.Outcome)).Inc()
	}
}

// WriteTextfile writes every recorded metric to path in the text exposition format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

func isValidOutcome(outcome types.Outcome) bool {
	return slices.Contains(validOutcomes, outcome)
}
