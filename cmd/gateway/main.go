package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/kafka"
	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/postgres"
	"github.com/DanielPopoola/coinpay-gateway/internal/config"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/spf13/cobra"
)

var Version = "dev"

// @title        CoinPay Gateway API
// @version      1.0
// @description  Push-payment initiation, reconciliation and coin ledger.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:           "coinpay-gateway",
		Short:         "Coin purchase gateway: push payments, reconciliation and ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(retentionCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(rejectCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what every command needs: configuration, the logger and a
// connected database.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *postgres.DB
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: db}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// publisher returns a Kafka publisher when brokers are configured. The returned
// interface is nil otherwise, and close is always safe to call.
func (a *app) publisher() (publisher ports.EventPublisher, closeFn func(), err error) {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka not configured, lifecycle events disabled")
		return nil, func() {}, nil
	}
	p, err := kafka.Dial(a.cfg.Kafka, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return p, func() {
		if err := p.Close(); err != nil {
			a.logger.Error("failed to close kafka producer", "error", err)
		}
	}, nil
}
