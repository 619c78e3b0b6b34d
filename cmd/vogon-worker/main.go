package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"vogon/internal/cli"
	"vogon/internal/config"
	"vogon/internal/interop/sheets"
	"vogon/internal/log"
	"vogon/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info", log.ComponentWorker).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting vogon-worker", log.FieldOperation, log.OpStartup)

	if err := run(logger, cfg); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	// The worker reconciles; it never republishes what it consumes.
	res, err := cli.InitBackend(ctx, logger.Logger, cfg, "worker", false)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}()

	rc := worker.ReconcilerConfig{Interval: cfg.ReconcileInterval, FullEvery: worker.DefaultReconcilerConfig().FullEvery}
	switch {
	case !cfg.AMQPEnabled():
		logger.Info("AMQP not configured, reconciling on every tick")
		rc.FullEvery = 1
	case res.Publisher == nil:
		logger.Warn("AMQP broker unreachable, reconciling on every tick")
		rc.FullEvery = 1
	}
	if cfg.GoogleSpreadsheetID != "" {
		mirror, err := sheets.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleCredentialsFile, sheets.DefaultTabs())
		if err != nil {
			return err
		}
		rc.Mirror = mirror
		logger.Info("Mirroring ledger to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	reconciler := worker.NewReconciler(res.Ledger, rc)
	res.Caches.StartCleanup(cfg.TransactionCacheTTL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := reconciler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return reconciler.Stop(stopCtx)
	})
	if res.Publisher != nil {
		g.Go(func() error {
			return res.Publisher.ConsumeEvents(gctx, reconciler.HandleMessage)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		cli.WaitForShutdown(ctx, done)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
