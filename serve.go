package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"

	"market_dashboard/api"
	"market_dashboard/binance"
	"market_dashboard/cache"
	"market_dashboard/config"
	"market_dashboard/market"
	"market_dashboard/metrics"
	"market_dashboard/middleware"
	"market_dashboard/monitoring"
	"market_dashboard/stream"
	"market_dashboard/utils"
	"market_dashboard/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream live tickers and serve the dashboard HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		envFiles, err := cmd.Flags().GetStringSlice("env-file")
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), envFiles...)
	},
}

func runServer(ctx context.Context, envFiles ...string) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}

	if err := utils.InitLogger(utils.LogOptions{
		Level:   cfg.App.LogLevel,
		Dir:     cfg.App.LogDir,
		Console: cfg.App.LogConsole,
	}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer utils.Logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsInstance := metrics.NewMetrics(reg, cfg.Metrics.Namespace)
	monitoring.StartMetricsCollection(ctx, metricsInstance, cfg.Metrics.CollectInterval)

	tickerCache := cache.NewTickerCache()

	breaker := middleware.NewCircuitBreaker("binance-rest", middleware.BreakerSettings{
		MaxRequests:  cfg.Breaker.MaxRequests,
		Interval:     cfg.Breaker.Interval,
		Timeout:      cfg.Breaker.Timeout,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
	})
	provider := binance.NewClient(cfg.Binance.RestURL,
		binance.WithBreaker(breaker),
		binance.WithTimeout(cfg.Binance.RequestTimeout),
		binance.WithMetrics(metricsInstance),
	)

	wsClient := ws.NewWebSocketClient(cfg.Binance.WSURL, nil).
		WithTimeouts(cfg.Stream.HandshakeTimeout, cfg.Stream.ReadTimeout)
	streamer := stream.New(wsClient, tickerCache, metricsInstance,
		stream.WithStreams(cfg.Binance.Streams...),
		stream.WithBackOff(utils.NewReconnectBackoff(cfg.Stream.RetryDelay)),
	)
	if err := streamer.Start(ctx); err != nil {
		return err
	}
	defer streamer.Stop()

	service := market.NewService(provider, tickerCache, metricsInstance, market.Options{
		QuoteAsset:      cfg.Query.QuoteAsset,
		RankLimit:       cfg.Query.RankLimit,
		CandleLimit:     cfg.Query.CandleLimit,
		HistoryLimit:    cfg.Query.HistoryLimit,
		LiveLimit:       cfg.Query.LiveLimit,
		Workers:         cfg.Query.Workers,
		DefaultInterval: cfg.DefaultInterval(),
		TimestampLayout: cfg.Query.TimestampLayout,
		Location:        loc,
	})

	health := monitoring.NewHealth(metricsInstance)
	health.RegisterCheck("ticker_stream", func() bool { return streamer.State() == stream.Streaming })
	health.RegisterCheck("ticker_cache", func() bool { return tickerCache.Len() > 0 })
	health.RegisterCheck("provider_breaker", func() bool { return breaker.State() != gobreaker.StateOpen })

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(api.NewHandler(service, health), reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		utils.Logger.Infow("HTTP server listening",
			"addr", cfg.Server.Addr,
			"env", cfg.App.Environment,
			"ws_url", wsClient.URL(),
			"rest_url", cfg.Binance.RestURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		utils.Logger.Infow("Shutting down")
	case err := <-serverErr:
		utils.Error(err, "HTTP server error")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Error(err, "HTTP server shutdown")
		return err
	}
	return nil
}
