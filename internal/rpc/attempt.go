package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// attempt performs one request against host with its own deadline.
// Every failure is returned as an *AttemptError.
func (c *Client) attempt(ctx context.Context, host string, op *Operation, body []byte, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimSuffix(host, "/") + op.Path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, url, reader)
	if err != nil {
		return nil, &AttemptError{Kind: KindNetwork, Host: host, Cause: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &AttemptError{
			Kind:       KindHTTP,
			Host:       host,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, host, fmt.Errorf("read body: %w", err))
	}

	if !json.Valid(payload) {
		return nil, &AttemptError{Kind: KindDecode, Host: host, Cause: errors.New("response body is not valid JSON")}
	}

	return json.RawMessage(payload), nil
}

// classifyTransportError separates an elapsed deadline from other transport
// failures. Caller cancellation stays a network failure wrapping context.Canceled.
func classifyTransportError(ctx context.Context, host string, err error) *AttemptError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &AttemptError{Kind: KindTimeout, Host: host, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &AttemptError{Kind: KindTimeout, Host: host, Cause: err}
	}
	return &AttemptError{Kind: KindNetwork, Host: host, Cause: err}
}
