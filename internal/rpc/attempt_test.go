package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowHandler answers after delay unless the client goes away first.
func slowHandler(delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(delay):
			fmt.Fprint(w, `{"late":true}`)
		}
	}
}

// closedServerURL returns the address of a server that is no longer listening.
func closedServerURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func newAttemptClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: "http://unused"}, WithLogger(quietLogger()))
	require.NoError(t, err)
	return c
}

func TestAttempt_Success(t *testing.T) {
	var gotPath, gotMethod, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := newAttemptClient(t)
	op := &Operation{Name: "submitTx", Method: http.MethodPost, Path: "/submitTx?x=1"}

	payload, err := c.attempt(context.Background(), srv.URL+"/", op, []byte(`{"a":1}`), time.Second)
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok":true}`, string(payload))
	assert.Equal(t, "/submitTx?x=1", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"a":1}`, gotBody)
}

func TestAttempt_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newAttemptClient(t)
	_, err := c.attempt(context.Background(), srv.URL, &Operation{Method: http.MethodGet, Path: "/chainTip"}, nil, time.Second)

	var attemptErr *AttemptError
	require.True(t, errors.As(err, &attemptErr))
	assert.Equal(t, KindHTTP, attemptErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, attemptErr.Status)
	assert.Equal(t, "Service Unavailable", attemptErr.StatusText)
	assert.Equal(t, srv.URL, attemptErr.Host)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestAttempt_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	}))
	defer srv.Close()

	c := newAttemptClient(t)
	_, err := c.attempt(context.Background(), srv.URL, &Operation{Method: http.MethodGet, Path: "/"}, nil, time.Second)

	assert.Equal(t, KindDecode, KindOf(err))
}

func TestAttempt_Timeout(t *testing.T) {
	srv := httptest.NewServer(slowHandler(2 * time.Second))
	defer srv.Close()

	c := newAttemptClient(t)

	start := time.Now()
	_, err := c.attempt(context.Background(), srv.URL, &Operation{Method: http.MethodGet, Path: "/"}, nil, 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.True(t, IsTimeout(err), "expected timeout, got %v", err)
	assert.NotEqual(t, KindNetwork, KindOf(err))
	assert.Less(t, elapsed, time.Second)
}

func TestAttempt_ConnectionRefused(t *testing.T) {
	c := newAttemptClient(t)
	_, err := c.attempt(context.Background(), closedServerURL(t), &Operation{Method: http.MethodGet, Path: "/"}, nil, time.Second)

	var attemptErr *AttemptError
	require.True(t, errors.As(err, &attemptErr))
	assert.Equal(t, KindNetwork, attemptErr.Kind)
	assert.NotNil(t, attemptErr.Cause)
}

func TestAttempt_CallerCancelled(t *testing.T) {
	srv := httptest.NewServer(slowHandler(2 * time.Second))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	c := newAttemptClient(t)
	_, err := c.attempt(ctx, srv.URL, &Operation{Method: http.MethodGet, Path: "/"}, nil, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRetryable(err))
}
