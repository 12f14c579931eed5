// Package rpc is a failover client for a replicated set of Archivas RPC hosts.
//
// Every logical request is tried against one host at a time, in pool order,
// with a fresh per-attempt deadline and a short fixed delay between failed
// attempts. The first success wins and its host moves to the front of the
// pool so later calls try it first.
//
//	client, err := rpc.NewClient(rpc.Config{
//		BaseURLs: []string{"https://seed.archivas.ai", "https://seed2.archivas.ai"},
//		Timeout:  2500 * time.Millisecond,
//	})
//	if err != nil {
//		return err
//	}
//	tip, err := client.GetChainTip(ctx)
package rpc

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"archivas-rpc-go/internal/limiter"
)

const (
	// DefaultReadTimeout bounds one GET attempt when Config.Timeout is zero.
	DefaultReadTimeout = 3000 * time.Millisecond
	// DefaultWriteTimeout bounds one POST attempt when Config.Timeout is zero.
	DefaultWriteTimeout = 5000 * time.Millisecond
	// DefaultJitterDelay is the pause between a failed attempt and the next host.
	DefaultJitterDelay = 150 * time.Millisecond
	// DefaultEthPath is where the nodes mount their eth_* JSON-RPC handler.
	DefaultEthPath = "/eth"
)

// Config selects the hosts and the per-attempt timeout.
type Config struct {
	// Deprecated: use BaseURLs. Ignored whenever BaseURLs is non-nil.
	BaseURL  string
	BaseURLs []string
	// Timeout applies to each attempt, not to the whole failover sequence.
	// Zero selects DefaultReadTimeout / DefaultWriteTimeout by verb.
	Timeout time.Duration
}

// hostList resolves the configured hosts. Empty entries are dropped.
func (c Config) hostList() []string {
	if c.BaseURLs != nil {
		hosts := make([]string, 0, len(c.BaseURLs))
		for _, u := range c.BaseURLs {
			if u != "" {
				hosts = append(hosts, u)
			}
		}
		return hosts
	}
	if c.BaseURL != "" {
		return []string{c.BaseURL}
	}
	return nil
}

// Client issues named operations against a HostPool with ordered failover.
// It is safe for concurrent use.
type Client struct {
	pool       *HostPool
	httpClient *http.Client
	timeout    time.Duration
	jitter     time.Duration
	ethPath    string
	limiter    *limiter.RateLimiter
	logger     *slog.Logger
	observer   Observer

	requestID atomic.Uint64
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. Its own Timeout should be zero or
// larger than the attempt timeout; deadlines are enforced per attempt.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver reports attempts and calls to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithRateLimit waits on a shared token bucket once per logical call.
// A non-positive rps leaves calls unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter.SetRate(rps, burst)
	}
}

// WithJitterDelay overrides the pause between failed attempts.
func WithJitterDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.jitter = d
		}
	}
}

// WithEthPath sets the path of the eth_* JSON-RPC handler.
func WithEthPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.ethPath = path
		}
	}
}

// NewClient validates cfg and builds the host pool. It fails with ErrConfig
// when no host is configured or the timeout is negative.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must be positive, got %s", ErrConfig, cfg.Timeout)
	}

	pool, err := NewHostPool(cfg.hostList())
	if err != nil {
		return nil, err
	}

	c := &Client{
		pool: pool,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:  cfg.Timeout,
		jitter:   DefaultJitterDelay,
		ethPath:  DefaultEthPath,
		limiter:  limiter.NewRateLimiter(0, limiter.DefaultBurstSize),
		logger:   slog.Default(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// SetRateLimit changes the call rate while the client is in use.
// A non-positive rps removes the limit.
func (c *Client) SetRateLimit(rps float64, burst int) {
	c.limiter.SetRate(rps, burst)
	c.logger.Info("rpc_rate_limit_changed", "rps", c.limiter.RPS(), "burst", burst)
}

// Hosts returns the current pool order, most recently successful host first.
func (c *Client) Hosts() []string {
	return c.pool.Hosts()
}

// attemptTimeout picks the deadline for one attempt of op.
func (c *Client) attemptTimeout(op *Operation) time.Duration {
	if op.Timeout > 0 {
		return op.Timeout
	}
	if c.timeout > 0 {
		return c.timeout
	}
	if op.Method == http.MethodPost {
		return DefaultWriteTimeout
	}
	return DefaultReadTimeout
}
