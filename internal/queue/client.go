package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/queue/handlers"
)

const maxRetry = 3

// Client wraps asynq.Client for enqueuing tasks
type Client struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewClient(redisAddr string, redisPassword string, logger *slog.Logger) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client: client,
		logger: logger,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueJob enqueues a job task. The job id doubles as the task id, so a job
// is never queued twice.
func (c *Client) EnqueueJob(ctx context.Context, jobID uuid.UUID, jobType string, payload []byte) error {
	task, opts, err := newJobTask(jobID, jobType, payload)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.InfoContext(ctx, "enqueued task",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
		slog.String("type", jobType),
	)
	return nil
}

func newJobTask(jobID uuid.UUID, jobType string, payload []byte) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(handlers.TaskPayload{
		JobID:   jobID.String(),
		Type:    jobType,
		Payload: string(payload),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(jobType, b), []asynq.Option{
		asynq.TaskID(jobID.String()),
		asynq.Queue(queueFor(jobType)),
		asynq.MaxRetry(maxRetry),
	}, nil
}

// queueFor routes user facing exports ahead of housekeeping.
func queueFor(jobType string) string {
	switch jobType {
	case config.TASK_EXPORT_PROJECT:
		return config.QUEUE_DEFAULT
	case config.TASK_EXPORT_CLEANUP:
		return config.QUEUE_LOW
	}
	return config.QUEUE_DEFAULT
}
