// Package relay serves the health, readiness, status and metrics endpoints
// of the seed caching relay that fronts the Archivas RPC nodes.
package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"archivas-rpc-go/internal/metrics"
	"archivas-rpc-go/internal/recovery"
)

// Options configures a relay Server.
type Options struct {
	UpstreamURLs []string
	CacheDir     string
	AccessLog    string
	Backend      string // reported in /status, defaults to "seed1"

	// StatFS defaults to DiskFreePercent.
	StatFS StatFS
	Logger *slog.Logger
}

// Server 中继监控服务
type Server struct {
	opts     Options
	upstream Upstream
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewServer wires the handlers. gatherer is what /metrics exports and must
// include the collectors of m.
func NewServer(opts Options, upstream Upstream, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	if opts.Backend == "" {
		opts.Backend = "seed1"
	}
	if opts.StatFS == nil {
		opts.StatFS = DiskFreePercent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		opts:     opts,
		upstream: upstream,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Handler returns the relay's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", s.route(http.MethodGet, s.health))
	mux.Handle("/ready", s.route(http.MethodGet, s.ready))
	mux.Handle("/status", s.route(http.MethodGet, s.status))
	mux.Handle("/metrics", s.route(http.MethodGet, s.exportMetrics))
	mux.Handle("/internal/record-cache-hit", s.route(http.MethodPost, s.recordCacheHit))
	mux.Handle("/internal/record-tx-submit", s.route(http.MethodPost, s.recordTxSubmit))
	mux.Handle("/internal/record-rate-limit", s.route(http.MethodPost, s.recordRateLimit))
	return mux
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// route enforces the method and turns returned errors and panics into a 500.
func (s *Server) route(method string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			s.writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
				"error": "Method Not Allowed",
			})
			return
		}

		err := recovery.Error(func() error { return h(w, r) })
		if err != nil {
			s.logger.Error("relay_request_failed",
				"method", r.Method,
				"path", r.URL.Path,
				"err", err,
			)
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Internal Server Error",
				"message": err.Error(),
			})
		}
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed_to_encode_response", "err", err)
	}
}

func timestamp() int64 {
	return time.Now().UnixMilli()
}

// health 简单存活检查
func (s *Server) health(w http.ResponseWriter, _ *http.Request) error {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": timestamp(),
	})
	return nil
}

// ready 就绪检查: 上游可达且缓存磁盘未满
func (s *Server) ready(w http.ResponseWriter, r *http.Request) error {
	upstream := s.checkUpstream(r.Context())
	cache := s.cacheStats()

	ready := upstream.Healthy && cache.Sufficient()
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]any{
		"ready": ready,
		"checks": map[string]any{
			"upstream": map[string]any{
				"healthy": upstream.Healthy,
				"latency": upstream.Latency.Milliseconds(),
			},
			"cache": map[string]any{
				"freeSpace":  cache.FreeSpacePercent,
				"sufficient": cache.Sufficient(),
			},
		},
		"timestamp": timestamp(),
	})
	return nil
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) error {
	upstream := s.checkUpstream(r.Context())
	cache := s.cacheStats()
	ratio := s.hitRatio()

	relayState := "degraded"
	if upstream.Healthy {
		relayState = "healthy"
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"relay":   relayState,
		"cache":   "enabled",
		"backend": s.opts.Backend,
		"upstream": map[string]any{
			"url":        strings.Join(s.opts.UpstreamURLs, ","),
			"healthy":    upstream.Healthy,
			"latency_ms": upstream.Latency.Milliseconds(),
			"height":     upstream.Height,
		},
		"cache_stats": map[string]any{
			"size_mb":            cache.SizeMB,
			"free_space_percent": cache.FreeSpacePercent,
			"file_count":         cache.FileCount,
			"hit_ratio_5m":       ratio.Ratio,
			"hits":               ratio.Hits,
			"misses":             ratio.Misses,
			"expired":            ratio.Expired,
		},
		"timestamp": timestamp(),
	})
	return nil
}

// exportMetrics refreshes the cache gauges before handing over to promhttp.
func (s *Server) exportMetrics(w http.ResponseWriter, r *http.Request) error {
	s.cacheStats()
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	return nil
}

func (s *Server) recordCacheHit(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Endpoint string `json:"endpoint"`
		Status   string `json:"status"`
	}
	if err := decodeOptionalBody(r, &body); err != nil {
		return err
	}

	s.metrics.RecordCacheStatus(body.Endpoint, body.Status)
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}

func (s *Server) recordTxSubmit(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Success bool `json:"success"`
	}
	if err := decodeOptionalBody(r, &body); err != nil {
		return err
	}

	s.metrics.RecordTxSubmit(body.Success)
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}

func (s *Server) recordRateLimit(w http.ResponseWriter, _ *http.Request) error {
	s.metrics.RecordRateLimited()
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}

// decodeOptionalBody decodes a JSON body into v; an empty body leaves v untouched.
func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// cacheStats reads the cache directory and updates the gauges.
func (s *Server) cacheStats() CacheStats {
	stats := ReadCacheStats(s.opts.CacheDir, s.opts.StatFS)
	if stats.Err != nil {
		s.logger.Warn("cache_stats_failed", "dir", s.opts.CacheDir, "err", stats.Err)
	}
	s.metrics.UpdateCacheGauges(stats.SizeBytes, stats.FreeSpacePercent)
	return stats
}

func (s *Server) hitRatio() HitRatio {
	ratio, err := ReadHitRatio(s.opts.AccessLog)
	if err != nil {
		s.logger.Warn("hit_ratio_failed", "log", s.opts.AccessLog, "err", err)
	}
	return ratio
}
