// Package backend talks to the remote test execution service over JSON-RPC.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ethereum-optimism/infra/op-testrun/cancellation"
	"github.com/ethereum-optimism/infra/op-testrun/orchestrator"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// Namespace is the RPC namespace of the test execution service
const Namespace = "testrun"

var _ orchestrator.Backend = (*Client)(nil)

// Client is a JSON-RPC client for the test execution service
type Client struct {
	rpc *rpc.Client
	log log.Logger
}

// Dial connects to endpoint, which may be an http(s), ws(s) or IPC address
func Dial(ctx context.Context, endpoint string, logger log.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	c, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	return NewClient(c, logger), nil
}

// NewClient wraps an existing rpc client
func NewClient(c *rpc.Client, logger log.Logger) *Client {
	if logger == nil {
		logger = log.New()
	}
	return &Client{rpc: c, log: logger}
}

// Close closes the underlying connection
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, token *cancellation.Token, result interface{}, method string, args ...interface{}) error {
	if token != nil {
		var cancel context.CancelFunc
		ctx, cancel = token.Context(ctx)
		defer cancel()
	}

	c.log.Debug("Calling test service", "method", method)
	if err := c.rpc.CallContext(ctx, result, Namespace+"_"+method, args...); err != nil {
		return &types.RemoteExecutionError{Op: method, Err: err}
	}
	return nil
}

// RunSynchronous runs the payload and blocks until the remote run completes.
// Cancelling the token aborts the in-flight call.
func (c *Client) RunSynchronous(ctx context.Context, payload types.SyncPayload, codeCoverage bool, token *cancellation.Token) (*types.TestResult, error) {
	var result *types.TestResult
	if err := c.call(ctx, token, &result, "runSync", payload, codeCoverage); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &types.RemoteExecutionError{Op: "runSync", Err: errors.New("empty result")}
	}
	return result, nil
}

// Submit submits the payload. The service answers with the run id, or with the
// full result if the run finished before it replied.
func (c *Client) Submit(ctx context.Context, payload types.AsyncPayload, codeCoverage bool, token *cancellation.Token) (types.RunOutcome, error) {
	var raw json.RawMessage
	if err := c.call(ctx, token, &raw, "submit", payload, codeCoverage); err != nil {
		return nil, err
	}
	outcome, err := types.DecodeRunOutcome(raw)
	if err != nil {
		return nil, &types.RemoteExecutionError{Op: "submit", Err: err}
	}
	return outcome, nil
}

// Status returns the server-side state of a submitted run
func (c *Client) Status(ctx context.Context, runID string) (*types.RunStatus, error) {
	var status types.RunStatus
	if err := c.call(ctx, nil, &status, "status", runID); err != nil {
		return nil, err
	}
	return &status, nil
}

// Report fetches the result of a finished run
func (c *Client) Report(ctx context.Context, runID string, codeCoverage bool) (*types.TestResult, error) {
	var result *types.TestResult
	if err := c.call(ctx, nil, &result, "report", runID, codeCoverage); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &types.RemoteExecutionError{Op: "report", Err: fmt.Errorf("no result for test run %s", runID)}
	}
	return result, nil
}

// Logs fetches debug logs, either the one identified by logID or the most
// recent number of logs.
func (c *Client) Logs(ctx context.Context, logID string, number int) ([]types.LogRecord, error) {
	var records []types.LogRecord
	if err := c.call(ctx, nil, &records, "logs", logID, number); err != nil {
		return nil, err
	}
	return records, nil
}
