package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Operation describes one logical request. The same Operation is replayed
// verbatim against each host.
type Operation struct {
	Name   string
	Method string // http.MethodGet or http.MethodPost
	Path   string // joined to the host base URL, leading slash included
	Body   any    // JSON-encoded once per call; nil sends no body

	// Timeout overrides the client's per-attempt timeout for this operation.
	Timeout time.Duration

	// Decode, when set, runs on each 2xx payload before the host counts as
	// having served the call. A failure is that host's attempt failure.
	Decode func(payload json.RawMessage) error
}

// Result is a successful call: the raw JSON payload and the host that served it.
type Result struct {
	Payload json.RawMessage
	Host    string
}

// Do runs op against the pool in order until one host succeeds.
//
// Between two failed attempts the driver pauses for the jitter delay; there is
// no pause after the last host. When every host fails the returned
// *AllHostsFailedError wraps the last attempt's *AttemptError only.
func (c *Client) Do(ctx context.Context, op Operation) (*Result, error) {
	start := time.Now()
	res, err := c.do(ctx, &op)

	host := ""
	if res != nil {
		host = res.Host
	}
	c.observer.CallObserved(op.Name, host, time.Since(start), err)

	return res, err
}

func (c *Client) do(ctx context.Context, op *Operation) (*Result, error) {
	if op.Name == "" {
		op.Name = op.Method + " " + op.Path
	}

	var body []byte
	if op.Body != nil {
		encoded, err := json.Marshal(op.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", op.Name, err)
		}
		body = encoded
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait for %s: %w", op.Name, err)
	}

	start := time.Now()
	timeout := c.attemptTimeout(op)
	hosts := c.pool.Snapshot()

	var (
		lastErr  error
		attempts int
	)

	for i, host := range hosts {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return nil, fmt.Errorf("%s: %w", op.Name, err)
			}
			break
		}

		attemptStart := time.Now()
		payload, err := c.attempt(ctx, host, op, body, timeout)
		if err == nil && op.Decode != nil {
			err = decodeAttempt(host, op.Decode, payload)
		}
		attempts++
		c.observer.AttemptObserved(host, op.Name, time.Since(attemptStart), err)

		if err == nil {
			if i > 0 && c.pool.Promote(host) {
				LogHostPromoted(c.logger, op.Name, host, i)
			}
			return &Result{Payload: payload, Host: host}, nil
		}

		lastErr = err
		LogAttemptFailed(c.logger, op.Name, host, i+1, len(hosts), err)

		if !IsRetryable(err) || i == len(hosts)-1 {
			break
		}
		if err := sleepContext(ctx, c.jitter); err != nil {
			break
		}
	}

	LogAllHostsFailed(c.logger, op.Name, attempts, time.Since(start), lastErr)
	return nil, &AllHostsFailedError{
		Operation: op.Name,
		Attempts:  attempts,
		LastCause: lastErr,
	}
}

// decodeAttempt runs decode on payload. Errors other than *JSONRPCError and
// *AttemptError become a KindDecode failure of host.
func decodeAttempt(host string, decode func(json.RawMessage) error, payload json.RawMessage) error {
	err := decode(payload)
	if err == nil {
		return nil
	}
	var (
		rpcErr     *JSONRPCError
		attemptErr *AttemptError
	)
	if errors.As(err, &rpcErr) || errors.As(err, &attemptErr) {
		return err
	}
	return &AttemptError{Kind: KindDecode, Host: host, Cause: err}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
