package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/bpaauwe/WeatherServicePrototype/internal/adapter/api"
	"github.com/bpaauwe/WeatherServicePrototype/internal/adapter/console"
	httpadapter "github.com/bpaauwe/WeatherServicePrototype/internal/adapter/http"
	kafkaadapter "github.com/bpaauwe/WeatherServicePrototype/internal/adapter/kafka"
	"github.com/bpaauwe/WeatherServicePrototype/internal/adapter/mqtt"
	"github.com/bpaauwe/WeatherServicePrototype/internal/adapter/openweather"
	"github.com/bpaauwe/WeatherServicePrototype/internal/config"
	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	"github.com/bpaauwe/WeatherServicePrototype/internal/node"
	"github.com/bpaauwe/WeatherServicePrototype/internal/observability"
	"github.com/bpaauwe/WeatherServicePrototype/internal/scheduler"
	"github.com/bpaauwe/WeatherServicePrototype/internal/store"
)

func serveEntry() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the node server until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

type closableStore interface {
	node.Store
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (closableStore, error) {
	if cfg.StateDB == "" {
		logger.Info("driver state kept in memory")
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewSQLiteStore(ctx, cfg.StateDB)
	if err != nil {
		return nil, err
	}
	logger.Info("driver state persisted", "path", cfg.StateDB)
	return s, nil
}

// openSink returns the configured sink and a function releasing it.
func openSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (node.Sink, func() error, error) {
	switch cfg.Sink {
	case config.SinkMQTT:
		s, err := mqtt.Connect(ctx, cfg.MQTTBroker, cfg.MQTTClientID, cfg.PolyglotProfile, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.SinkKafka:
		w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, clockwork.NewRealClock(), logger)
		return w, w.Close, nil
	case config.SinkConsole:
		return console.NewSink(os.Stdout), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("state store close error", "error", err)
		}
	}()

	sink, closeSink, err := openSink(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s sink: %w", cfg.Sink, err)
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Error("sink close error", "error", err)
		}
	}()

	client := openweather.NewClient(cfg.APIURL, cfg.HTTPTimeout, cfg.FetchMaxRetries, metrics, logger)
	n := node.New(node.Config{
		Address: cfg.NodeAddress,
		Name:    cfg.NodeName,
		Query: domain.Query{
			Location: cfg.Location,
			Units:    cfg.Units,
			APIKey:   cfg.APIKey,
		},
	}, client, sink, st, clockwork.NewRealClock(), logger, metrics)

	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	sched := scheduler.New(n, cfg.PollInterval, cfg.PollTimeout, logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	ops := httpadapter.NewServer(cfg.HTTPAddr, cfg.NodeAddress, n, prometheus.DefaultGatherer, logger)
	go func() {
		if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	app := api.NewApp(n, logger)
	go func() {
		logger.Info("api server starting", "addr", cfg.APIAddr)
		if err := app.Listen(cfg.APIAddr); err != nil {
			logger.Error("api server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if err := n.Stop(shutdownCtx); err != nil {
		logger.Error("node stop error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
