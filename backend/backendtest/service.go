// Package backendtest provides an in-process test execution service for tests.
package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// Service is a scripted implementation of the testrun RPC namespace
type Service struct {
	// Result is returned, with its run id replaced, for every completed run
	Result types.TestResult
	// PollsUntilDone is the number of status calls that report the run as
	// processing before it completes. Negative values never complete.
	PollsUntilDone int
	// CompleteOnSubmit makes submit answer with the full result
	CompleteOnSubmit bool
	// Block, when set, is waited on by runSync before it answers
	Block chan struct{}
	// LogRecords are served by logs, most recent first
	LogRecords []types.LogRecord

	mu            sync.Mutex
	nextID        int
	polls         map[string]int
	SyncPayloads  []types.SyncPayload
	AsyncPayloads []types.AsyncPayload
}

// Start registers the service on an in-process server and returns a client
// connected to it. Both are closed when the test ends.
func Start(t testing.TB, svc *Service) *rpc.Client {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("testrun", svc))
	t.Cleanup(srv.Stop)

	client := rpc.DialInProc(srv)
	t.Cleanup(client.Close)
	return client
}

func (s *Service) newRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if s.polls == nil {
		s.polls = make(map[string]int)
	}
	id := fmt.Sprintf("707xx%010d", s.nextID)
	s.polls[id] = 0
	return id
}

func (s *Service) result(runID string, codeCoverage bool) *types.TestResult {
	result := s.Result
	result.Summary.TestRunID = runID
	result.Tests = append([]types.TestOutcome(nil), s.Result.Tests...)
	if !codeCoverage {
		result.CodeCoverage = nil
	}
	return &result
}

// RunSync serves testrun_runSync
func (s *Service) RunSync(ctx context.Context, payload types.SyncPayload, codeCoverage bool) (*types.TestResult, error) {
	s.mu.Lock()
	s.SyncPayloads = append(s.SyncPayloads, payload)
	s.mu.Unlock()

	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.result(s.newRunID(), codeCoverage), nil
}

// Submit serves testrun_submit
func (s *Service) Submit(payload types.AsyncPayload, codeCoverage bool) (json.RawMessage, error) {
	s.mu.Lock()
	s.AsyncPayloads = append(s.AsyncPayloads, payload)
	s.mu.Unlock()

	runID := s.newRunID()
	if s.CompleteOnSubmit {
		return json.Marshal(s.result(runID, codeCoverage))
	}
	return json.Marshal(types.PendingRun{TestRunID: runID})
}

// Status serves testrun_status
func (s *Service) Status(runID string) (*types.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	polls, ok := s.polls[runID]
	if !ok {
		return nil, fmt.Errorf("unknown test run %s", runID)
	}
	s.polls[runID] = polls + 1

	state := types.RunStateProcessing
	if s.PollsUntilDone >= 0 && polls >= s.PollsUntilDone {
		state = types.RunStateCompleted
	}
	return &types.RunStatus{
		TestRunID: runID,
		State:     state,
		Completed: len(s.Result.Tests),
		Total:     len(s.Result.Tests),
	}, nil
}

// Report serves testrun_report. Unknown run ids are served too, so reports
// can be fetched for runs submitted elsewhere.
func (s *Service) Report(runID string, codeCoverage bool) (*types.TestResult, error) {
	if runID == "" {
		return nil, fmt.Errorf("test run id is required")
	}
	return s.result(runID, codeCoverage), nil
}

// Logs serves testrun_logs
func (s *Service) Logs(logID string, number int) ([]types.LogRecord, error) {
	if logID != "" {
		for _, record := range s.LogRecords {
			if record.ID == logID {
				return []types.LogRecord{record}, nil
			}
		}
		return []types.LogRecord{}, nil
	}
	if number <= 0 || number > len(s.LogRecords) {
		number = len(s.LogRecords)
	}
	return append([]types.LogRecord{}, s.LogRecords[:number]...), nil
}

// Polls returns how many status calls were made for runID
func (s *Service) Polls(runID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[runID]
}
