package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sigweihq/yieldpay/pkg/api"
	"github.com/sigweihq/yieldpay/pkg/batch"
	"github.com/sigweihq/yieldpay/pkg/config"
	"github.com/sigweihq/yieldpay/pkg/constants"
	"github.com/sigweihq/yieldpay/pkg/ledger"
	"github.com/sigweihq/yieldpay/pkg/metrics"
	"github.com/sigweihq/yieldpay/pkg/payments"
	"github.com/sigweihq/yieldpay/pkg/relay"
	"github.com/sigweihq/yieldpay/pkg/storage"
	"github.com/sigweihq/yieldpay/pkg/submitter"
	"github.com/sigweihq/yieldpay/pkg/tracker"
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

	signer, err := relay.NewECDSASigner(cfg.SignerKey)
	if err != nil {
		logger.Error("invalid signer key", "error", err)
		os.Exit(1)
	}

	relayClient := relay.NewClient(cfg.RelayURL, cfg.PolicyID, logger)
	builder := batch.NewBuilder()
	profiles := storage.NewProfileRepository(pool)
	records := storage.NewTransactionRepository(pool)
	m := metrics.New(prometheus.DefaultRegisterer)

	service := payments.NewService(payments.Config{
		Reader:        ledger.NewChainReader(cfg.RPCEndpoints, logger),
		Builder:       builder,
		Submitter:     submitter.New(relayClient, signer, constants.ChainIDBaseSepolia, logger),
		Tracker:       tracker.New(relayClient, logger),
		Accounts:      relayClient,
		Profiles:      profiles,
		Records:       records,
		SignerAddress: signer.Address(),
		Treasury:      common.HexToAddress(cfg.TreasuryAddress),
		Metrics:       m,
		Logger:        logger,
	})

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	handler := &api.Handler{
		Service:  service,
		Profiles: profiles,
		Records:  records,
		Logger:   logger,
	}
	handler.Register(app)

	go func() {
		logger.Info("api server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	service.Close()
	pool.Close()
}
