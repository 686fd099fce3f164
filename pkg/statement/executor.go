package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// StatementsAPI is the create-statement endpoint.
	StatementsAPI = "/api/2.0/sql/statements"

	// DefaultPollInterval is the fixed wait between status polls.
	DefaultPollInterval = 10 * time.Second

	// DefaultMaxPolls bounds the number of status fetches per statement.
	DefaultMaxPolls = 60

	// cancelTimeout bounds the best-effort cancel issued after the caller gives up.
	cancelTimeout = 5 * time.Second

	// noWait asks the service to return immediately after accepting the statement.
	noWait = "0s"

	unknownError = "Unknown error"
)

// API is the subset of the client shim the executor needs.
type API interface {
	Get(ctx context.Context, endpoint string, query url.Values, out any) error
	Post(ctx context.Context, endpoint string, body, out any) error
}

// Config configures an Executor.
type Config struct {
	// WarehouseID is used when a call does not name a warehouse.
	WarehouseID string

	// Catalog and Schema set the default namespace for unqualified names.
	Catalog string
	Schema  string

	PollInterval time.Duration
	MaxPolls     int
}

// Executor submits statements and polls them to completion. It keeps no
// state between calls and is safe for concurrent use.
type Executor struct {
	api API
	cfg Config
}

// NewExecutor creates a new executor.
func NewExecutor(api API, cfg Config) *Executor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	return &Executor{api: api, cfg: cfg}
}

// WarehouseID returns the configured default warehouse.
func (e *Executor) WarehouseID() string {
	return e.cfg.WarehouseID
}

// Execute runs sql on the given warehouse, or the configured default when
// warehouseID is empty, and waits for it to finish. The returned response is
// the SUCCEEDED payload.
func (e *Executor) Execute(ctx context.Context, sql, warehouseID string) (*Response, error) {
	if warehouseID == "" {
		warehouseID = e.cfg.WarehouseID
	}
	if warehouseID == "" {
		return nil, ErrConfiguration
	}

	handle, err := e.Submit(ctx, Request{
		Statement:   sql,
		WarehouseID: warehouseID,
		WaitTimeout: noWait,
		Catalog:     e.cfg.Catalog,
		Schema:      e.cfg.Schema,
	})
	if err != nil {
		return nil, err
	}

	return e.Wait(ctx, handle)
}

// Submit creates the statement without waiting for it to run.
func (e *Executor) Submit(ctx context.Context, req Request) (Handle, error) {
	req.WaitTimeout = noWait

	var resp Response
	if err := e.api.Post(ctx, StatementsAPI, req, &resp); err != nil {
		return Handle{}, err
	}
	if resp.StatementID == "" {
		return Handle{}, protocolError("Failed to get statement ID from response")
	}

	slog.Debug("statement submitted",
		"statement_id", resp.StatementID,
		"warehouse_id", req.WarehouseID,
		"state", resp.Status.State,
	)
	return resp.Handle(), nil
}

// Status fetches one status snapshot.
func (e *Executor) Status(ctx context.Context, h Handle) (*Response, error) {
	var resp Response
	if err := e.api.Get(ctx, statementPath(h), nil, &resp); err != nil {
		return nil, err
	}
	if resp.StatementID == "" {
		resp.StatementID = h.ID
	}
	return &resp, nil
}

// Cancel asks the service to stop a running statement.
func (e *Executor) Cancel(ctx context.Context, h Handle) error {
	if err := e.api.Post(ctx, statementPath(h)+"/cancel", struct{}{}, nil); err != nil {
		return fmt.Errorf("canceling statement %s: %w", h.ID, err)
	}
	return nil
}

// Wait polls h until it reaches a terminal state, the poll budget runs out,
// or ctx is done. Polls are spaced by the fixed interval; there is no
// backoff. If ctx ends first the statement is canceled on a best-effort basis.
func (e *Executor) Wait(ctx context.Context, h Handle) (*Response, error) {
	var (
		final *Response
		last  State
		polls int
	)

	notifier := progressNotifier(ctx)

	backoff := retry.WithMaxRetries(uint64(e.cfg.MaxPolls-1), retry.NewConstant(e.cfg.PollInterval)) //nolint:gosec // MaxPolls is always >= 1

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		polls++
		resp, err := e.Status(ctx, h)
		if err != nil {
			return err
		}
		last = resp.Status.State

		slog.Debug("statement polled",
			"statement_id", h.ID,
			"state", last,
			"poll", polls,
		)
		if notifier != nil {
			notifier.Notify(ctx, polls, e.cfg.MaxPolls, last)
		}

		switch last {
		case StateSucceeded:
			final = resp
			return nil
		case StateFailed, StateCanceled, StateClosed:
			return failure(h, resp, polls)
		default:
			return retry.RetryableError(errStillRunning)
		}
	})

	switch {
	case err == nil:
		return final, nil
	case errors.Is(err, errStillRunning):
		slog.Warn("statement polling exhausted",
			"statement_id", h.ID,
			"state", last,
			"polls", polls,
		)
		return nil, &ExecutionError{
			StatementID: h.ID,
			State:       last,
			Message:     ErrTimeout.Error(),
			Polls:       polls,
			err:         ErrTimeout,
		}
	case ctx.Err() != nil:
		e.cancelDetached(ctx, h)
		return nil, fmt.Errorf("waiting for statement %s: %w", h.ID, ctx.Err())
	default:
		return nil, err
	}
}

// cancelDetached issues a cancel that outlives the caller's context.
func (e *Executor) cancelDetached(ctx context.Context, h Handle) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if err := e.Cancel(cctx, h); err != nil {
		slog.Debug("best-effort statement cancel failed", "statement_id", h.ID, "error", err)
	}
}

// failure builds the ExecutionError for a FAILED, CANCELED or CLOSED status.
func failure(h Handle, resp *Response, polls int) *ExecutionError {
	ee := &ExecutionError{
		StatementID: h.ID,
		State:       resp.Status.State,
		Message:     unknownError,
		Polls:       polls,
	}
	if se := resp.Status.Error; se != nil {
		ee.ErrorCode = se.ErrorCode
		if se.Message != "" {
			ee.Message = se.Message
		}
	}
	return ee
}

func statementPath(h Handle) string {
	return StatementsAPI + "/" + url.PathEscape(h.ID)
}
