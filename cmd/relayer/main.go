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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emperorhan/tx-relayer/internal/alert"
	"github.com/emperorhan/tx-relayer/internal/api"
	"github.com/emperorhan/tx-relayer/internal/chain/ethereum"
	"github.com/emperorhan/tx-relayer/internal/config"
	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/nonce"
	"github.com/emperorhan/tx-relayer/internal/relay"
	"github.com/emperorhan/tx-relayer/internal/signer"
	"github.com/emperorhan/tx-relayer/internal/store/postgres"
	redisstore "github.com/emperorhan/tx-relayer/internal/store/redis"
	"github.com/emperorhan/tx-relayer/internal/tracing"
)

func main() {
	logLevel := slog.LevelInfo
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	chainID := model.Chain(cfg.Chain.ChainID)

	logger.Info("starting tx-relayer",
		"chain", chainID.String(),
		"rpc", cfg.Chain.RPCURL,
		"relay_address", cfg.Chain.RelayAddress,
		"signer", cfg.Signer.URL,
		"confirmation_depth", cfg.Relay.ConfirmationDepth,
		"max_escalations", cfg.Relay.MaxEscalations,
	)

	// Initialize OpenTelemetry tracing
	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(context.Background(), "tx-relayer", tracingEndpoint, true)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	// Connect to PostgreSQL
	db, err := postgres.New(postgres.Config{
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.DB.MigrationsDir); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	repo := postgres.NewRequestRepo(db)

	// Journal is optional; the requests table stays authoritative
	// without it.
	var journal relay.Journal = relay.NoopJournal{}
	if cfg.Redis.URL != "" {
		j, err := redisstore.NewJournal(cfg.Redis.URL, cfg.Redis.JournalStream)
		if err != nil {
			logger.Error("failed to connect to redis journal", "error", err)
			os.Exit(1)
		}
		defer j.Close()
		journal = j
		logger.Info("journal enabled", "stream", cfg.Redis.JournalStream)
	}

	alerter := buildAlerter(cfg, logger)

	adapter := ethereum.NewAdapter(ethereum.Config{
		RPCURL:       cfg.Chain.RPCURL,
		Chain:        chainID,
		RateLimitRPS: cfg.Chain.RateLimitRPS,
		RateBurst:    cfg.Chain.RateBurst,
	}, logger)

	signerClient := signer.NewClient(cfg.Signer.URL, cfg.Signer.Timeout)

	alloc := nonce.NewAllocator(chainID)

	submitter := relay.NewSubmitter(repo, alloc, signerClient, adapter, adapter, adapter, journal, chainID, logger)

	watcher := relay.NewWatcher(relay.WatcherConfig{
		Chain:              chainID,
		PollInterval:       time.Duration(cfg.Relay.PollIntervalMs) * time.Millisecond,
		StuckTimeout:       time.Duration(cfg.Relay.StuckTimeoutSec) * time.Second,
		ConfirmationDepth:  int64(cfg.Relay.ConfirmationDepth),
		MaxEscalations:     cfg.Relay.MaxEscalations,
		ReceiptConcurrency: cfg.Relay.ReceiptWorkers,
	}, repo, signerClient, adapter, adapter, adapter, journal, alerter, relay.NewClock(), logger)

	recovery := relay.NewRecovery(chainID, cfg.Chain.RelayAddress, repo, adapter, alloc, journal, alerter, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reconcile against the chain before anything is accepted. The API
	// could start earlier since Reserve blocks on the seed, but failing
	// fast on an unreachable chain is more useful than queueing.
	if err := recovery.Run(ctx); err != nil {
		logger.Error("startup recovery failed", "error", err)
		os.Exit(1)
	}

	apiServer := api.NewServer(submitter, repo, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runAPIServer(gCtx, cfg.Server.APIPort, apiServer.Handler(), logger)
	})

	g.Go(func() error {
		return watcher.Run(gCtx)
	})

	g.Go(func() error {
		return submitter.RunReconciler(gCtx, 5*time.Second)
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("relayer exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("relayer shut down gracefully")
}

func buildAlerter(cfg *config.Config, logger *slog.Logger) alert.Alerter {
	var channels []alert.Alerter
	if cfg.Alert.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackAlerter(cfg.Alert.SlackWebhookURL))
	}
	if cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookAlerter(cfg.Alert.WebhookURL))
	}
	if len(channels) == 0 {
		return &alert.NoopAlerter{}
	}
	cooldown := time.Duration(cfg.Alert.CooldownMin) * time.Minute
	return alert.NewMultiAlerter(cooldown, logger, channels...)
}

func runAPIServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("api server shutdown error", "error", err)
		}
	}()

	logger.Info("api server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
