package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

// HandleExportProject runs one export job. Failures that another attempt
// cannot fix skip the retry queue.
func (h *Handlers) HandleExportProject(ctx context.Context, task *asynq.Task) error {
	jobID, err := parseJobID(task)
	if err != nil {
		h.logger.ErrorContext(ctx, "[Queue] rejected task", slog.String("type", task.Type()), slog.Any("error", err))
		return err
	}

	logger := h.logger.With(slog.String("job_id", jobID.String()))
	logger.InfoContext(ctx, "[Queue] processing export:project")

	last := isLastAttempt(ctx)
	if err := h.usecase.ProcessExportProjectJob(ctx, jobID, last); err != nil {
		logger.ErrorContext(ctx, "[Queue] failed to process job", slog.Bool("last_attempt", last), slog.Any("error", err))
		if usecase.IsPermanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.InfoContext(ctx, "[Queue] completed job")
	return nil
}

// HandleExportCleanup fails jobs stuck in PROCESSING, left behind by a worker
// that died mid export.
func (h *Handlers) HandleExportCleanup(ctx context.Context, _ *asynq.Task) error {
	n, err := h.usecase.FailStaleJobs(ctx, h.staleAfter)
	if err != nil {
		return err
	}
	if n > 0 {
		h.logger.WarnContext(ctx, "[Queue] failed stale export jobs", slog.Int("count", n))
	}
	return nil
}
