package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"archivas-rpc-go/internal/config"
	"archivas-rpc-go/internal/metrics"
	"archivas-rpc-go/internal/recovery"
	"archivas-rpc-go/internal/relay"
	"archivas-rpc-go/internal/rpc"
	"archivas-rpc-go/pkg/network"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("relay_exit", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := rpc.InitLogger(cfg.LogLevel, cfg.LogFormat)
	recovery.Logger = logger

	reg := metrics.NewRegistry()
	m := metrics.NewMetrics(reg)

	upstream, err := rpc.NewClient(
		rpc.Config{BaseURLs: cfg.UpstreamURL, Timeout: relay.UpstreamTimeout},
		rpc.WithLogger(logger),
		rpc.WithObserver(m),
		rpc.WithEthPath(cfg.EthPath),
	)
	if err != nil {
		return fmt.Errorf("upstream client: %w", err)
	}

	if cfg.ChainID != 0 {
		if err := network.VerifyNetwork(context.Background(), upstream, cfg.ChainID); err != nil {
			return err
		}
	}

	srv := relay.NewServer(relay.Options{
		UpstreamURLs: cfg.UpstreamURL,
		CacheDir:     cfg.CacheDir,
		AccessLog:    cfg.AccessLog,
		Logger:       logger,
	}, upstream, m, reg)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.FormatInt(cfg.Port, 10)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	recovery.Go("relay_http_server", func() {
		logger.Info("relay_listening",
			"addr", httpServer.Addr,
			"upstream", upstream.Hosts(),
			"cache_dir", cfg.CacheDir,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-sigCh:
		logger.Info("relay_shutdown", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
