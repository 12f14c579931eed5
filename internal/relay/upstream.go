package relay

import (
	"context"
	"time"

	"archivas-rpc-go/internal/rpc"
)

// UpstreamTimeout bounds one upstream health probe.
const UpstreamTimeout = 5 * time.Second

// Upstream is the part of *rpc.Client the relay probes.
type Upstream interface {
	GetChainTip(ctx context.Context) (rpc.ChainTip, error)
}

// UpstreamStatus is the outcome of one chain tip probe.
type UpstreamStatus struct {
	Healthy bool
	Latency time.Duration
	Height  *string // as reported by the node, nil when absent
	Err     error
}

// checkUpstream fetches the chain tip through the failover client and
// records the latency whatever the outcome.
func (s *Server) checkUpstream(ctx context.Context) UpstreamStatus {
	ctx, cancel := context.WithTimeout(ctx, UpstreamTimeout)
	defer cancel()

	start := time.Now()
	tip, err := s.upstream.GetChainTip(ctx)
	latency := time.Since(start)
	s.metrics.RecordUpstreamLatency(latency)

	if err != nil {
		s.logger.Warn("upstream_check_failed",
			"latency_ms", latency.Milliseconds(),
			"err", err,
		)
		return UpstreamStatus{Latency: latency, Err: err}
	}

	status := UpstreamStatus{Healthy: true, Latency: latency}
	if height := tip.Height.String(); height != "" {
		status.Height = &height
	}
	return status
}
