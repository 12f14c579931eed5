package limiter

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// DefaultBurstSize is used when a caller asks for a burst below one.
const DefaultBurstSize = 1

// RateLimiter is a token bucket shared by every call made through one client.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter 创建一个新的限流器, rps <= 0 表示不限流
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < DefaultBurstSize {
		burst = DefaultBurstSize
	}

	if rps <= 0 {
		slog.Debug("rate_limiter_disabled")
		return &RateLimiter{
			limiter: rate.NewLimiter(rate.Inf, burst),
		}
	}

	slog.Info("rate_limiter_configured",
		"rps", rps,
		"burst", burst)

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait 阻塞直到获取令牌（或上下文取消）
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// RPS returns the configured rate, 0 when unlimited.
func (rl *RateLimiter) RPS() float64 {
	limit := rl.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}
	return float64(limit)
}

// SetRate updates the limit in place; callers already waiting observe the new rate.
func (rl *RateLimiter) SetRate(rps float64, burst int) {
	if burst < DefaultBurstSize {
		burst = DefaultBurstSize
	}
	if rps <= 0 {
		rl.limiter.SetLimit(rate.Inf)
	} else {
		rl.limiter.SetLimit(rate.Limit(rps))
	}
	rl.limiter.SetBurst(burst)
}
