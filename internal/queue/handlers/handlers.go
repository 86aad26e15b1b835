package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Usecase is the part of usecase.Usecase the task handlers call.
type Usecase interface {
	ProcessExportProjectJob(ctx context.Context, jobID uuid.UUID, lastAttempt bool) error
	FailStaleJobs(ctx context.Context, maxAge time.Duration) (int, error)
}

type Handlers struct {
	usecase    Usecase
	logger     *slog.Logger
	staleAfter time.Duration
}

func NewHandlers(uc Usecase, logger *slog.Logger, staleAfter time.Duration) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		usecase:    uc,
		logger:     logger,
		staleAfter: staleAfter,
	}
}

// TaskPayload represents the standard payload structure for all tasks
type TaskPayload struct {
	JobID   string `json:"job_id"`
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// parseJobID rejects malformed tasks without retrying them.
func parseJobID(task *asynq.Task) (uuid.UUID, error) {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, fmt.Errorf("parse task payload: %v: %w", err, asynq.SkipRetry)
	}
	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id %q: %w", payload.JobID, asynq.SkipRetry)
	}
	return jobID, nil
}

// isLastAttempt reports whether asynq will not retry the running task. Outside
// of asynq every run is the last.
func isLastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
