package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"archivas-rpc-go/internal/config"
	"archivas-rpc-go/internal/metrics"
	"archivas-rpc-go/internal/recovery"
	"archivas-rpc-go/internal/rpc"
)

// servedBy counts which host answered each call and forwards to next.
type servedBy struct {
	next   rpc.Observer
	mu     sync.Mutex
	hosts  map[string]int
	failed atomic.Int64
}

func (s *servedBy) AttemptObserved(host, operation string, d time.Duration, err error) {
	s.next.AttemptObserved(host, operation, d, err)
}

func (s *servedBy) CallObserved(operation, host string, d time.Duration, err error) {
	s.next.CallObserved(operation, host, d, err)
	if err != nil {
		s.failed.Add(1)
		return
	}
	s.mu.Lock()
	s.hosts[host]++
	s.mu.Unlock()
}

func main() {
	workers := flag.Int("workers", 8, "concurrent callers")
	duration := flag.Duration("duration", 30*time.Second, "test length")
	rps := flag.Float64("rps", 0, "starting call rate, 0 = unlimited")
	rpsStep := flag.Float64("rps-step", 0, "added to -rps every second")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :2112")
	flag.Parse()

	cfg := config.Load()
	rpc.InitLogger("error", "text")

	stats := &servedBy{next: metrics.GetMetrics(), hosts: make(map[string]int)}
	client, err := rpc.NewClient(cfg.ClientConfig(), append(cfg.ClientOptions(), rpc.WithObserver(stats))...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
	if *rps > 0 {
		client.SetRateLimit(*rps, 1)
	}

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		recovery.Go("stress_metrics_server", func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintln(os.Stderr, "❌ metrics:", err)
			}
		})
		defer srv.Close()
		fmt.Printf("📈 metrics on http://%s/metrics\n", *metricsAddr)
	}

	fmt.Printf("🚀 Failover load test: %d workers for %s against %v\n", *workers, *duration, client.Hosts())

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var (
		calls  atomic.Int64
		height atomic.Uint64
	)
	startTime := time.Now()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if *rps > 0 && *rpsStep != 0 {
					*rps += *rpsStep
					client.SetRateLimit(*rps, 1)
				}
				elapsed := time.Since(startTime).Seconds()
				fmt.Printf("📊 calls=%d failed=%d rate=%.1f/s height=%d order=%v\n",
					calls.Load(), stats.failed.Load(), float64(calls.Load())/elapsed, height.Load(), client.Hosts())
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				tip, err := client.GetChainTip(ctx)
				calls.Add(1)
				if err != nil {
					continue
				}
				if h, err := tip.HeightUint64(); err == nil {
					height.Store(h)
				}
			}
		}()
	}
	wg.Wait()

	totalTime := time.Since(startTime)
	fmt.Printf("🏁 Done: %d calls in %s (%.1f/s), %d failed\n",
		calls.Load(), totalTime.Round(time.Millisecond), float64(calls.Load())/totalTime.Seconds(), stats.failed.Load())

	hosts := make([]string, 0, len(stats.hosts))
	for h := range stats.hosts {
		hosts = append(hosts, h)
	}
	sort.Slice(hosts, func(i, j int) bool { return stats.hosts[hosts[i]] > stats.hosts[hosts[j]] })
	for _, h := range hosts {
		fmt.Printf("   %-40s %d\n", h, stats.hosts[h])
	}
}
