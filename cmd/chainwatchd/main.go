package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chainwatch/blocktime"
	"chainwatch/config"
	"chainwatch/ledger"
	"chainwatch/observability/logging"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CHAINWATCH_ENV"))
	logger := logging.Setup("chainwatchd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	samplers := make([]*blocktime.Sampler, 0, len(cfg.Networks))
	adapters := make([]*ledger.EVMAdapter, 0, len(cfg.Networks))
	for _, network := range cfg.Networks {
		dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		opts := []ledger.EVMOption{}
		if network.ReadsPerSecond > 0 {
			opts = append(opts, ledger.WithReadLimit(network.ReadsPerSecond, int(network.ReadsPerSecond)))
		}
		adapter, err := ledger.DialEVM(dialCtx, network.RPCURL, opts...)
		cancel()
		if err != nil {
			logger.Error("Failed to connect network",
				slog.String("network", network.Name),
				slog.Any("error", err))
			os.Exit(1)
		}
		adapters = append(adapters, adapter)

		calibrator := blocktime.NewCalibrator(
			blocktime.WithSampleBounds(cfg.Blocktime.MinSamples, cfg.Blocktime.MaxSamples),
		)
		sampler := blocktime.NewSampler(adapter, calibrator, logger.With(slog.String("network", network.Name)))
		sampler.Acquire()
		samplers = append(samplers, sampler)

		logger.Info("Watching network",
			slog.String("network", network.Name),
			slog.Uint64("chain_id", adapter.NetworkID()))
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics listening", slog.String("address", cfg.MetricsAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics shutdown incomplete", slog.Any("error", err))
	}
	for _, sampler := range samplers {
		sampler.Release()
	}
	for _, adapter := range adapters {
		adapter.Close()
	}
}
