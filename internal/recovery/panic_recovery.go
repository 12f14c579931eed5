// Package recovery keeps a panicking goroutine from taking the relay down.
package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

var Logger = slog.Default()

// Go runs fn in a new goroutine and logs any panic under name.
func Go(name string, fn func()) {
	go WithRecoveryNamed(name, fn)
}

// WithRecoveryNamed runs fn and logs a panic instead of propagating it.
// It reports whether fn returned normally.
func WithRecoveryNamed(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("panic_recovered",
				slog.String("worker_name", name),
				slog.String("error", fmt.Sprintf("%v", r)),
				slog.String("stack", string(debug.Stack())),
			)
			ok = false
		}
	}()
	fn()
	return true
}

// Error runs fn and turns a panic into an error, for request handlers that
// must still answer.
func Error(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("handler_panic_recovered",
				slog.String("error", fmt.Sprintf("%v", r)),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
