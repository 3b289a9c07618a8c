package main

import (
	"context"
	"errors"
	"fmt"
	logByDefault "log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	config "github.com/vaultgram/vaultgram-server/internal/config"
	"github.com/vaultgram/vaultgram-server/internal/httpclient"
	log "github.com/vaultgram/vaultgram-server/internal/log"
	"github.com/vaultgram/vaultgram-server/internal/metrics"
	"github.com/vaultgram/vaultgram-server/internal/monitor"
	"github.com/vaultgram/vaultgram-server/internal/origin"
	"github.com/vaultgram/vaultgram-server/internal/payment"
	"github.com/vaultgram/vaultgram-server/internal/relay"
	"github.com/vaultgram/vaultgram-server/internal/schedule"
	"github.com/vaultgram/vaultgram-server/internal/server"
	storage "github.com/vaultgram/vaultgram-server/internal/storage"
	"github.com/vaultgram/vaultgram-server/internal/telegram"
	"github.com/vaultgram/vaultgram-server/internal/tron"

	// This controls the maxprocs environment variable in container runtimes.
	// see https://martin.baillie.id/wrote/gotchas-in-the-go-network-packages-defaults/#bonus-gomaxprocs-containers-and-the-cfs
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// Set the local timezone to UTC
	time.Local = time.UTC

	// Initialize the configuration
	config, err := config.MustLoadConfig()
	if err != nil {
		logByDefault.Fatalf("Config load error: %v", err)
	}

	// Logger configuration
	logger := log.New(
		log.WithLevel(config.Verbose),
		log.WithSource(),
	)

	if err := run(config, logger); err != nil {
		logger.ErrorContext(context.Background(), "an error occurred", slog.String("error", err.Error()))
		os.Exit(1)
	}

	os.Exit(0)
}

//nolint:cyclop
func run(config *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := maxprocs.Set(maxprocs.Logger(func(s string, i ...interface{}) {
		logger.DebugContext(ctx, fmt.Sprintf(s, i...))
	}))
	if err != nil {
		return fmt.Errorf("setting max procs: %w", err)
	}

	// Setup database connection
	db, err := storage.New(config, logger)
	if err != nil {
		return fmt.Errorf("database connection error: %w", err)
	}
	defer db.Close()

	// Create a http client
	httpClient, err := httpclient.NewHTTPClient(&config.Proxy)
	if err != nil {
		return fmt.Errorf("http client setup error: %w", err)
	}

	// Setup InfluxDB metrics (if any)
	var m metrics.Metrics
	if config.Metrics.URL != "" {
		m = metrics.NewMetricsImpl(
			config.Metrics.URL,
			config.Metrics.Token,
			config.Metrics.Org,
			config.Metrics.Bucket,
			map[string]string{"environment": config.Environment},
		)
	} else {
		m = metrics.NewMetricsFake()
	}
	defer m.Close()

	// Setup Telegram bot
	bot, err := telegram.New(config, db, httpClient, logger)
	if err != nil {
		return fmt.Errorf("telegram bot setup error: %w", err)
	}

	// The overload flag is shared: the monitor flips it, the relay admission
	// reads it.
	var overloaded atomic.Bool

	// Setup the relay orchestrator on top of the origin agent and the bot
	originAgent := origin.NewAgent(config.Origin.Endpoint, httpClient)
	relayer, err := relay.NewOrchestrator(
		config,
		db,
		originAgent,
		bot.Archive(),
		bot.Courier(),
		bot.Classifier(),
		&overloaded,
		m,
		logger,
	)
	if err != nil {
		return fmt.Errorf("relay setup error: %w", err)
	}
	defer relayer.Close()
	bot.Bind(relayer)

	// Payment reconciliation against the TRC20 ledger
	ledger := tron.NewClient(&config.Payment, httpClient)
	reconciler := payment.NewReconciler(&config.Payment, db, ledger, bot, m, logger)

	// Background loops: resource monitor, payment sweeps, daily quota reset
	mon := monitor.New(&config.Monitor, &overloaded, logger)
	go mon.Run(ctx)
	go schedule.Every(ctx, "payment-reconcile", config.Payment.CheckInterval, logger, reconciler.Sweep)
	go schedule.Daily(ctx, "quota-reset", logger, func(ctx context.Context) error {
		count, err := db.ResetStaleQuotas(ctx, storage.CurrentDate())
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "daily quota reset", slog.Int64("rows", count))
		return nil
	})

	// Setup API server
	srv := server.New(config, logger)
	srv.AddHealthCheck(func() (bool, map[string]string) {
		details := map[string]string{}
		healthy := true
		if err := db.Ping(context.Background()); err != nil {
			healthy = false
			details["database"] = err.Error()
		} else {
			details["database"] = "ok"
		}
		if overloaded.Load() {
			details["load"] = "overloaded"
		} else {
			details["load"] = "ok"
		}
		return healthy, details
	})
	srv.AddPendingOrders(db.PendingOrders)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server error: %w", err)
		}
	}()
	go bot.Start()

	logger.InfoContext(ctx, "Server started", slog.String("host", config.API.Host), slog.Int("port", config.API.Port))

	// Block until a signal or a fatal server error, then unwind.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		logger.InfoContext(ctx, "shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	cancel()
	bot.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WarnContext(ctx, "api shutdown error", slog.String("error", err.Error()))
	}

	return nil
}
