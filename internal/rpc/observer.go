package rpc

import "time"

// Observer receives the outcome of every attempt and every logical call.
// The client only reports; aggregation is left to the implementation
// (see internal/metrics). Implementations must be safe for concurrent use.
type Observer interface {
	AttemptObserved(host, operation string, duration time.Duration, err error)
	CallObserved(operation, host string, duration time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) AttemptObserved(string, string, time.Duration, error) {}

func (noopObserver) CallObserved(string, string, time.Duration, error) {}
