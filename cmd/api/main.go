package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vailabel/vailabel-studio-sub002/internal/server"
	"github.com/vailabel/vailabel-studio-sub002/internal/telemetry"
)

func main() {
	logger := telemetry.NewLogger()
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Setup(ctx, "vailabel-api")
	if err != nil {
		logger.Error("failed to set up telemetry", slog.String("err", err.Error()))
		os.Exit(1)
	}

	app, err := server.NewApp(ctx, logger)
	if err != nil {
		logger.Error("failed to create app", slog.String("err", err.Error()))
		os.Exit(1)
	}

	// Server startup
	go func() {
		logger.Info("API server starting", slog.String("addr", app.Addr()))
		if err := app.ListenAndServe(); err != nil {
			logger.Error("server error", slog.String("err", err.Error()))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if err := shutdownTelemetry(ctx); err != nil {
		logger.Warn("telemetry shutdown error", slog.String("err", err.Error()))
	}

	logger.Info("API server exited properly")
}
