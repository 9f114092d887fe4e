package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sigweihq/yieldpay/pkg/config"
	"github.com/sigweihq/yieldpay/pkg/constants"
	"github.com/sigweihq/yieldpay/pkg/ledger"
	"github.com/sigweihq/yieldpay/pkg/metrics"
	"github.com/sigweihq/yieldpay/pkg/relay"
	"github.com/sigweihq/yieldpay/pkg/storage"
	"github.com/sigweihq/yieldpay/pkg/submitter"
	"github.com/sigweihq/yieldpay/pkg/sweep"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pool, err := storage.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	signer, err := relay.NewECDSASigner(cfg.SignerKey)
	if err != nil {
		logger.Error("invalid signer key", "error", err)
		os.Exit(1)
	}

	relayClient := relay.NewClient(cfg.RelayURL, cfg.PolicyID, logger)

	sweeper := sweep.New(sweep.Config{
		Profiles:  storage.NewProfileRepository(pool),
		Reader:    ledger.NewChainReader(cfg.RPCEndpoints, logger),
		Submitter: submitter.New(relayClient, signer, constants.ChainIDBaseSepolia, logger),
		Interval:  cfg.SweepInterval,
		Metrics:   metrics.New(prometheus.DefaultRegisterer),
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("sweep daemon started", "interval", cfg.SweepInterval.String())
	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sweep daemon stopped", "error", err)
		os.Exit(1)
	}
}
