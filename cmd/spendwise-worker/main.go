package main

import (
	"context"
	"errors"
	"os"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/cli"
	"spendwise/internal/log"
	"spendwise/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert worker")
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend selected: alerts will not be visible to the API process")
	}

	// The worker only stores alerts; it never publishes.
	amqpURL := cfg.AMQPURL
	cfg.AMQPURL = ""
	result := cli.InitBackend(context.Background(), logger, cfg)

	client, err := amqp.NewClient(amqpURL, cfg.AMQPExchange, cfg.AMQPQueue, amqp.EventBudgetOverspent)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		_ = result.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err.Error())
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	alerts := worker.NewAlertWorker(result.Store)
	logger.Info("Starting spendwise-worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"backend", cfg.DataBackend)

	if err := client.ConsumeWithReconnect(ctx, alerts.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		_ = client.Close()
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
