// Package orchestrator drives a single test run from plan to completed or
// pending outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-testrun/cancellation"
	"github.com/ethereum-optimism/infra/op-testrun/metrics"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

const (
	DefaultPollInterval = 2 * time.Second

	pathSync  = "sync"
	pathAsync = "async"
)

// Backend is the remote test execution service
type Backend interface {
	RunSynchronous(ctx context.Context, payload types.SyncPayload, codeCoverage bool, token *cancellation.Token) (*types.TestResult, error)
	Submit(ctx context.Context, payload types.AsyncPayload, codeCoverage bool, token *cancellation.Token) (types.RunOutcome, error)
	Status(ctx context.Context, runID string) (*types.RunStatus, error)
	Report(ctx context.Context, runID string, codeCoverage bool) (*types.TestResult, error)
}

// PayloadBuilder turns a plan into request payloads
type PayloadBuilder interface {
	BuildSync(plan *types.RunPlan) (types.SyncPayload, error)
	BuildAsync(plan *types.RunPlan) (types.AsyncPayload, error)
}

// State is the lifecycle state of an Orchestrator
type State int32

const (
	StateIdle State = iota
	StateBuilding
	StateExecuting
	StateCompleted
	StatePending
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StatePending:
		return "pending"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config configures an Orchestrator
type Config struct {
	Log          log.Logger
	Backend      Backend
	Builder      PayloadBuilder
	Token        *cancellation.Token
	PollInterval time.Duration
	// JSONEnabled is the invocation's machine-output mode. It only affects
	// whether a --synchronous run that fell back to the async path is polled.
	JSONEnabled bool
}

// Orchestrator runs exactly one plan
type Orchestrator struct {
	log          log.Logger
	backend      Backend
	builder      PayloadBuilder
	token        *cancellation.Token
	pollInterval time.Duration
	jsonEnabled  bool
	tracer       trace.Tracer

	state atomic.Int32
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if cfg.Builder == nil {
		return nil, errors.New("payload builder is required")
	}
	if cfg.Token == nil {
		return nil, errors.New("cancellation token is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Orchestrator{
		log:          cfg.Log,
		backend:      cfg.Backend,
		builder:      cfg.Builder,
		token:        cfg.Token,
		pollInterval: cfg.PollInterval,
		jsonEnabled:  cfg.JSONEnabled,
		tracer:       otel.Tracer("test orchestrator"),
	}, nil
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	prev := State(o.state.Swap(int32(s)))
	o.log.Debug("Orchestrator state change", "from", prev, "to", s)
}

// ShouldPoll decides whether an async submission is followed by polling.
// A positive wait always polls; otherwise only a --synchronous run outside
// machine-output mode does.
func ShouldPoll(plan *types.RunPlan, jsonEnabled bool) bool {
	if plan.Wait > 0 {
		return true
	}
	return plan.Synchronous && !jsonEnabled
}

// Run executes the plan. The result is a *types.TestResult when the run
// completed and a types.PendingRun when it was submitted but not waited for,
// or the wait elapsed. If the token was cancelled at any point the result is
// discarded and the error wraps types.ErrCancelled.
func (o *Orchestrator) Run(ctx context.Context, plan *types.RunPlan) (types.RunOutcome, error) {
	if plan == nil {
		return nil, errors.New("run plan is required")
	}
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateBuilding)) {
		return nil, fmt.Errorf("orchestrator already %s", o.State())
	}

	path := pathAsync
	if plan.RunsSynchronously() {
		path = pathSync
	}
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, fmt.Sprintf("test run %s", plan.TestLevel))
	span.SetAttributes(attribute.String("path", path))
	defer span.End()

	var outcome types.RunOutcome
	var err error
	if path == pathSync {
		outcome, err = o.runSynchronous(ctx, plan)
	} else {
		outcome, err = o.runAsynchronous(ctx, plan)
	}

	if o.token.IsCancellationRequested() {
		o.setState(StateCancelled)
		metrics.RecordRun(path, plan.TestLevel, metrics.RunCancelled, time.Since(start))
		if outcome != nil {
			o.log.Info("Discarding result of cancelled test run", "test_run_id", outcome.RunID())
		}
		return nil, fmt.Errorf("test run %w", types.ErrCancelled)
	}
	if err != nil {
		o.setState(StateFailed)
		metrics.RecordRun(path, plan.TestLevel, metrics.RunFailed, time.Since(start))
		span.RecordError(err)
		return nil, err
	}

	switch outcome.(type) {
	case *types.TestResult:
		o.setState(StateCompleted)
		metrics.RecordRun(path, plan.TestLevel, metrics.RunCompleted, time.Since(start))
	case types.PendingRun:
		o.setState(StatePending)
		metrics.RecordRun(path, plan.TestLevel, metrics.RunPending, time.Since(start))
	default:
		o.setState(StateFailed)
		return nil, fmt.Errorf("unexpected run outcome %T", outcome)
	}

	o.log.Info("Test run finished", "test_run_id", outcome.RunID(), "state", o.State(), "duration", time.Since(start))
	return outcome, nil
}

func (o *Orchestrator) runSynchronous(ctx context.Context, plan *types.RunPlan) (types.RunOutcome, error) {
	payload, err := o.builder.BuildSync(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to build synchronous payload: %w", err)
	}
	payload.SkipCodeCoverage = !plan.CodeCoverage

	o.setState(StateExecuting)
	o.log.Info("Running tests synchronously", "test_level", payload.TestLevel, "tests", len(payload.Tests))

	result, err := o.backend.RunSynchronous(ctx, payload, plan.CodeCoverage, o.token)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &types.RemoteExecutionError{Op: "runSync", Err: errors.New("empty result")}
	}
	return result, nil
}

func (o *Orchestrator) runAsynchronous(ctx context.Context, plan *types.RunPlan) (types.RunOutcome, error) {
	payload, err := o.builder.BuildAsync(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to build asynchronous payload: %w", err)
	}
	payload.SkipCodeCoverage = !plan.CodeCoverage

	poll := ShouldPoll(plan, o.jsonEnabled)

	o.setState(StateExecuting)
	o.log.Info("Submitting test run", "test_level", payload.TestLevel, "poll", poll, "wait", plan.Wait)

	outcome, err := o.backend.Submit(ctx, payload, plan.CodeCoverage, o.token)
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, &types.RemoteExecutionError{Op: "submit", Err: errors.New("empty response")}
	}

	pending, ok := outcome.(types.PendingRun)
	if !ok || !poll {
		return outcome, nil
	}
	return o.poll(ctx, pending, plan)
}

// poll waits for a submitted run to finish. Running out of wait time, or the
// token being cancelled, degrades to the pending outcome.
func (o *Orchestrator) poll(parent context.Context, pending types.PendingRun, plan *types.RunPlan) (types.RunOutcome, error) {
	ctx, span := o.tracer.Start(parent, "poll test run")
	defer span.End()

	ctx, cancel := o.token.Context(ctx)
	defer cancel()
	if plan.Wait > 0 {
		var cancelWait context.CancelFunc
		ctx, cancelWait = context.WithTimeout(ctx, plan.Wait)
		defer cancelWait()
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	runID := pending.TestRunID
	for {
		status, err := o.backend.Status(ctx, runID)
		metrics.RecordPoll()
		if err != nil {
			if o.stopped(parent, ctx) {
				return pending, nil
			}
			return nil, err
		}

		if status.State.Finished() {
			o.log.Debug("Test run finished remotely", "test_run_id", runID, "state", status.State)
			result, err := o.backend.Report(ctx, runID, plan.CodeCoverage)
			if err != nil {
				if o.stopped(parent, ctx) {
					return pending, nil
				}
				return nil, err
			}
			return result, nil
		}

		o.log.Debug("Test run in progress", "test_run_id", runID, "state", status.State,
			"completed", status.Completed, "total", status.Total)

		select {
		case <-ctx.Done():
			if o.stopped(parent, ctx) {
				o.log.Info("Stopped waiting for test run", "test_run_id", runID)
				return pending, nil
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// stopped reports whether the poll context ended because the wait elapsed or
// the token was cancelled, rather than because the caller gave up.
func (o *Orchestrator) stopped(parent, pollCtx context.Context) bool {
	if parent.Err() != nil {
		return false
	}
	return o.token.IsCancellationRequested() || errors.Is(pollCtx.Err(), context.DeadlineExceeded)
}
