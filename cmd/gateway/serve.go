package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/gateway"
	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/handler"
	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/postgres"
	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/redis"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/DanielPopoola/coinpay-gateway/internal/worker"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout   = 30 * time.Second
	retentionInterval = time.Hour
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, callback workers and reconciliation loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	logger.Info("starting gateway service",
		"port", cfg.Server.Port,
		"env", cfg.Primary.Env,
		"log_level", cfg.Logger.Level,
		"auto_approve", cfg.Approval.AutoApprove,
	)

	if migrate {
		if err := a.db.Migrate(ctx); err != nil {
			return err
		}
	}

	publisher, closePublisher, err := a.publisher()
	if err != nil {
		return err
	}
	defer closePublisher()

	var limiter ports.RateLimiter
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		limiter = redis.NewRateLimiter(client, cfg.RateLimit)
	} else {
		logger.Info("redis not configured, initiation rate limit disabled")
	}

	paymentRepo := postgres.NewPaymentRepository(a.db)
	ledgerRepo := postgres.NewLedgerRepository(a.db)
	callbackRepo := postgres.NewCallbackRepository(a.db)

	gatewayClient := gateway.NewGatewayClient(cfg.Gateway, logger)

	approvals := service.NewApprovalService(paymentRepo, publisher, logger)
	settlement := service.NewSettlement(paymentRepo, approvals, cfg.Approval.AutoApprove, publisher, logger)
	poller := service.NewPoller(gatewayClient, paymentRepo, settlement, cfg.Poller, logger)
	processor := service.NewCallbackProcessor(paymentRepo, callbackRepo, settlement, logger)
	initiate := service.NewInitiateService(paymentRepo, gatewayClient, settlement, poller, limiter, logger)
	queries := service.NewPaymentQueryService(paymentRepo)
	ledger := service.NewLedgerService(ledgerRepo, publisher, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	pool := worker.NewCallbackPool(cfg.Webhook.QueueSize, processor, logger)
	pool.Start(workerCtx, cfg.Webhook.Workers)

	h := handler.NewPaymentHandler(handler.Services{
		Initiate:  initiate,
		Query:     queries,
		Gateway:   gatewayClient,
		Poller:    poller,
		Callbacks: processor,
		Dispatch:  pool,
		Approvals: approvals,
		Ledger:    ledger,
		Health:    a.db,
	}, handler.Options{
		JWTSecret:  cfg.Auth.JWTSecret,
		AckTimeout: cfg.Webhook.AckTimeout,
	}, logger)

	validator, err := handler.NewOpenAPIValidator(logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Server.Port,
		Handler: handler.Chain(mux,
			handler.RequestID,
			handler.Logging(logger),
			handler.Recovery(logger),
			handler.Timeout(cfg.Server.WriteTimeout),
			validator.Middleware,
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	retryWorker := worker.NewRetryWorker(callbackRepo, processor,
		cfg.Worker.Interval, cfg.Worker.BatchSize, cfg.Worker.MaxCallbackAttempts, logger)
	reconciler := worker.NewReconciler(paymentRepo, poller,
		cfg.Worker.Interval, cfg.Poller.Budget()+cfg.Worker.PendingGrace, cfg.Worker.BatchSize, logger)
	retention := worker.NewRetentionWorker(paymentRepo,
		retentionInterval, cfg.Retention.MaxAge, cfg.Retention.BatchSize, logger)

	var wg sync.WaitGroup
	for _, start := range []func(context.Context){retryWorker.Start, reconciler.Start, retention.Start} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(workerCtx)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server...")
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// queued callbacks finish before their dependencies go away
	pool.Shutdown()
	if err := poller.Shutdown(shutdownCtx); err != nil {
		logger.Error("poll sessions did not stop in time", "error", err)
	}

	cancelWorkers()
	wg.Wait()

	logger.Info("server exited")
	return nil
}
