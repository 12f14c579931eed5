package rpc

import (
	"context"
	"errors"
	"fmt"
)

// ErrConfig is returned by NewClient when no usable host was configured.
var ErrConfig = errors.New("rpc config: requires BaseURL or BaseURLs")

// ErrorKind classifies why a single attempt against one host failed.
type ErrorKind int

const (
	// KindTimeout means the per-attempt deadline elapsed before the call completed.
	KindTimeout ErrorKind = iota + 1
	// KindHTTP means the host answered with a non-2xx status.
	KindHTTP
	// KindNetwork means the connection or transport failed.
	KindNetwork
	// KindDecode means the response body was not the expected JSON.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http_error"
	case KindNetwork:
		return "network_error"
	case KindDecode:
		return "decode_error"
	default:
		return "unknown"
	}
}

// AttemptError is the classified failure of one attempt.
type AttemptError struct {
	Kind       ErrorKind
	Host       string
	Status     int    // KindHTTP only
	StatusText string // KindHTTP only
	Cause      error
}

func (e *AttemptError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: HTTP %d: %s", maskURL(e.Host), e.Status, e.StatusText)
	case KindTimeout:
		return fmt.Sprintf("%s: request timed out", maskURL(e.Host))
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", maskURL(e.Host), e.Kind, e.Cause)
		}
		return fmt.Sprintf("%s: %s", maskURL(e.Host), e.Kind)
	}
}

func (e *AttemptError) Unwrap() error { return e.Cause }

// AllHostsFailedError is returned once every host in the pool has been tried.
// Only the last failure is kept.
type AllHostsFailedError struct {
	Operation string
	Attempts  int
	LastCause error
}

func (e *AllHostsFailedError) Error() string {
	return fmt.Sprintf("all RPC hosts failed for %s (%d attempts): %v", e.Operation, e.Attempts, e.LastCause)
}

func (e *AllHostsFailedError) Unwrap() error { return e.LastCause }

// JSONRPCError is an error member returned inside a JSON-RPC 2.0 envelope.
// It is a server answer, not a host failure, so it never triggers failover.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// KindOf returns the ErrorKind carried by err, or 0 when err is not an attempt failure.
func KindOf(err error) ErrorKind {
	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		return attemptErr.Kind
	}
	return 0
}

// IsTimeout reports whether err is, or wraps, an attempt timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsRetryable reports whether another host could plausibly serve the request.
// Caller cancellation and configuration errors are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfig) || errors.Is(err, context.Canceled) {
		return false
	}
	var rpcErr *JSONRPCError
	return !errors.As(err, &rpcErr)
}
