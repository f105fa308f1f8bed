package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/custodial-ledger/internal/api"
	"github.com/sheikh-saqib/custodial-ledger/internal/config"
	"github.com/sheikh-saqib/custodial-ledger/internal/ledger"
	"github.com/sheikh-saqib/custodial-ledger/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	deps, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	l := ledger.NewLedger(deps.store, cfg.ProgramID,
		ledger.WithLocker(deps.locker),
		ledger.WithPublisher(deps.publisher),
		ledger.WithLogger(logger),
		ledger.WithCreationFee(cfg.CreationFee),
		ledger.WithTopicPrefix(cfg.KafkaTopicPrefix),
		ledger.WithFaucet(cfg.FaucetEnabled),
	)
	app := api.NewApp(api.NewHandler(l, logger), logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("program_id", cfg.ProgramID.String()),
			zap.String("store", cfg.Store),
			zap.String("locker", cfg.Locker),
			zap.Bool("faucet", cfg.FaucetEnabled),
		)
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
