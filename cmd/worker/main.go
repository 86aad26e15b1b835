package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vailabel/vailabel-studio-sub002/internal/queue"
	"github.com/vailabel/vailabel-studio-sub002/internal/telemetry"
)

func main() {
	var mode = flag.String("mode", "worker", "Mode to run: 'worker', 'scheduler'")
	flag.Parse()

	logger := telemetry.NewLogger()
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Setup(ctx, "vailabel-worker")
	if err != nil {
		logger.Error("Failed to set up telemetry", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("Telemetry shutdown error", slog.String("err", err.Error()))
		}
	}()

	switch *mode {
	case "worker":
		runWorker(ctx, logger)
	case "scheduler":
		runScheduler(logger)
	default:
		logger.Error("Invalid mode. Use 'worker' or 'scheduler'", slog.String("mode", *mode))
		os.Exit(1)
	}
}

func runWorker(ctx context.Context, logger *slog.Logger) {
	logger.Info("Starting in WORKER mode...")

	worker, err := queue.NewWorker(ctx, logger)
	if err != nil {
		logger.Error("Failed to create worker", slog.String("err", err.Error()))
		os.Exit(1)
	}

	serve(logger, "worker", worker.Start, worker.Stop)
}

func runScheduler(logger *slog.Logger) {
	logger.Info("Starting in SCHEDULER mode...")

	scheduler, err := queue.NewScheduler(logger)
	if err != nil {
		logger.Error("Failed to create scheduler", slog.String("err", err.Error()))
		os.Exit(1)
	}

	serve(logger, "scheduler", scheduler.Start, scheduler.Stop)
}

// serve runs start until SIGINT or SIGTERM, then calls stop. A start error
// also ends the process.
func serve(logger *slog.Logger, name string, start func() error, stop func()) {
	logger = logger.With(slog.String("mode", name))

	failed := make(chan error, 1)
	go func() {
		if err := start(); err != nil {
			failed <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down...", slog.String("signal", sig.String()))
	case err := <-failed:
		logger.Error("Failed to start", slog.String("err", err.Error()))
	}

	stop()
	logger.Info("Exited properly")
}
