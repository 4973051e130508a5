package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-bot/internal/bot"
	"github.com/rxtech-lab/argo-bot/internal/config"
	"github.com/rxtech-lab/argo-bot/internal/logger"
	"github.com/rxtech-lab/argo-bot/internal/metrics"
	"github.com/rxtech-lab/argo-bot/internal/strategy"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// runAction loads the config, trades until a signal arrives or the run budget is spent,
// then stops with the configured cancel option and writes the session stats.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if override := cmd.String("log-level"); override != "" {
		level = override
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return err
	}
	defer log.Sync()

	strat, err := strategy.ByName(cfg.Strategy)
	if err != nil {
		return err
	}

	m := metrics.NewMetrics()

	b, err := bot.New(bot.Options{
		Product:            cfg.Product,
		Logger:             log,
		Client:             nil,
		Credentials:        &cfg.Exchange,
		Feed:               nil,
		FeedEnabled:        cfg.Feed.Enabled,
		FeedReconnectDelay: cfg.Feed.ReconnectDelay,
		FeedMaxReconnects:  cfg.Feed.MaxReconnects,
		Strategy:           strat,
		StrategyName:       cfg.Strategy,
		Metrics:            m,
		Clock:              nil,
		Rand:               nil,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := startMetricsServer(cfg.Metrics.Addr, m, log)

	b.Connect(ctx)

	if err := b.StartTrading(ctx, cfg.Schedule); err != nil {
		b.Close(context.Background())

		return err
	}

	selfStopped := false

	select {
	case <-ctx.Done():
		log.Info("signal received, stopping")
	case <-b.Scheduler().Done():
		selfStopped = true
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var stopErr error

	if selfStopped {
		// the scheduler already halted itself, so only the cancel is left to do
		if cfg.Stop.CancelOrders {
			stopErr = b.CancelAllOrders(shutdownCtx)
		}
	} else {
		stopErr = b.StopTrading(shutdownCtx, cfg.StopOptions())
	}

	if err := b.Close(shutdownCtx); err != nil {
		log.Warn("close failed", zap.Error(err))
	}

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}

	stats := b.Stats()
	log.Info("session finished",
		zap.String("session_id", stats.ID),
		zap.Int64("ticks", stats.Ticks),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("runs", stats.Runs),
		zap.Int64("failures", stats.Failures),
	)

	if cfg.StatsFile != "" {
		if err := types.WriteSessionStats(cfg.StatsFile, stats); err != nil {
			log.Error("failed to write session stats", zap.String("path", cfg.StatsFile), zap.Error(err))
		}
	}

	return stopErr
}

// startMetricsServer serves /metrics on addr. It returns nil when addr is empty.
func startMetricsServer(addr string, m *metrics.Metrics, log *logger.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	router := mux.NewRouter()
	router.Handle("/metrics", m.Handler()).Methods("GET")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	log.Info("serving metrics", zap.String("addr", addr))

	return server
}
