package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"github.com/vailabel/vailabel-studio-sub002/internal/bootstrap"
	"github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/queue/handlers"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

// StaleJobAge is how long a job may stay PROCESSING before the cleanup task
// fails it.
const StaleJobAge = 30 * time.Minute

// Worker represents a worker application with all its dependencies
type Worker struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
	deps        *bootstrap.Deps
	logger      *slog.Logger
}

// NewWorker creates a fully configured worker with all dependencies
func NewWorker(ctx context.Context, logger *slog.Logger) (*Worker, error) {
	logger.Info("initializing worker dependencies")

	deps, err := bootstrap.New(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	// workers run jobs, they never enqueue them
	uc := usecase.New(deps.Repo, deps.Storage, deps.Mailer, nil, deps.Publisher, logger)

	asynqServer := asynq.NewServer(
		redisOpt(),
		asynq.Config{
			Concurrency: workerConcurrency(),
			Queues: map[string]int{
				config.QUEUE_CRITICAL: 6,
				config.QUEUE_DEFAULT:  3,
				config.QUEUE_LOW:      1,
			},
			Logger:   NewSlogAdapter(logger),
			LogLevel: asynqLogLevel(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.ErrorContext(ctx, "task failed",
					slog.String("type", task.Type()),
					slog.Int("retry", retried),
					slog.Int("max_retry", maxRetry),
					slog.Any("error", err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	h := handlers.NewHandlers(uc, logger, StaleJobAge)
	mux.HandleFunc(config.TASK_EXPORT_PROJECT, h.HandleExportProject)
	mux.HandleFunc(config.TASK_EXPORT_CLEANUP, h.HandleExportCleanup)

	logger.Info("worker registered handlers",
		slog.Any("tasks", []string{config.TASK_EXPORT_PROJECT, config.TASK_EXPORT_CLEANUP}))

	return &Worker{
		asynqServer: asynqServer,
		mux:         mux,
		deps:        deps,
		logger:      logger,
	}, nil
}

// Start starts the worker server
func (w *Worker) Start() error {
	w.logger.Info("worker started")
	return w.asynqServer.Start(w.mux)
}

// Stop stops the worker server gracefully
func (w *Worker) Stop() {
	w.logger.Info("stopping worker")
	w.asynqServer.Shutdown()

	if err := w.deps.Close(); err != nil {
		w.logger.Error("error closing dependencies", slog.Any("error", err))
	}
}

func redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     bootstrap.RedisAddr(),
		Password: os.Getenv(config.ENV_KEY_REDIS_PASSWORD),
	}
}

func workerConcurrency() int {
	if n, err := strconv.Atoi(os.Getenv(config.ENV_KEY_WORKER_CONCURRENCY)); err == nil && n > 0 {
		return n
	}
	return 10
}
