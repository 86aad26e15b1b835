package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

// JobStateRetrying is published when an attempt failed and the queue will run
// the job again.
const JobStateRetrying = "RETRYING"

type Job struct {
	ID          uuid.UUID
	Type        string
	RequestedBy string
	Status      string
	Payload     []byte
	Result      []byte
	Error       string
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ListJobsOption struct {
	Skip   int
	Limit  int
	SortBy string
	SortIn string

	Types       []string
	Statuses    []string
	RequestedBy string
	// StartedBefore narrows to jobs started before the given time.
	StartedBefore *time.Time
}

// JobEvent is published on every export state change of a job.
type JobEvent struct {
	JobID     uuid.UUID `json:"job_id"`
	Status    string    `json:"status"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ListJobs is scoped to the caller when a user id is present in ctx.
func (u Usecase) ListJobs(ctx context.Context, opt ListJobsOption) ([]Job, int, error) {
	if userID, ok := ctx.Value(config.CTX_KEY_USER_ID).(string); ok && userID != "" {
		opt.RequestedBy = userID
	}
	return u.repo.ListJobs(ctx, opt)
}

func (u Usecase) GetJobByID(ctx context.Context, id uuid.UUID) (Job, error) {
	job, err := u.repo.GetJobByID(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if userID, ok := ctx.Value(config.CTX_KEY_USER_ID).(string); ok && userID != "" &&
		job.RequestedBy != "" && job.RequestedBy != userID {
		// other users' jobs are indistinguishable from missing ones
		return Job{}, ErrNotFound{
			ID:      id.String(),
			Code:    "job_not_found",
			Message: "job " + id.String() + " not found",
		}
	}
	return job, nil
}

// CreateJob stores a PENDING job and hands it to the queue. A failed enqueue
// marks the job FAILED.
func (u Usecase) CreateJob(ctx context.Context, job Job) (Job, error) {
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	if job.RequestedBy == "" {
		job.RequestedBy, _ = ctx.Value(config.CTX_KEY_USER_ID).(string)
	}

	created, err := u.repo.CreateJob(ctx, job)
	if err != nil {
		return Job{}, err
	}

	if u.queue == nil {
		return created, nil
	}
	if err := u.queue.EnqueueJob(ctx, created.ID, created.Type, created.Payload); err != nil {
		u.logger.ErrorContext(ctx, "failed to enqueue job",
			"job_id", created.ID.String(), "type", created.Type, "err", err.Error())
		finished := u.now()
		created.Status = JobStatusFailed
		created.Error = err.Error()
		created.FinishedAt = &finished
		if _, uerr := u.repo.UpdateJob(ctx, created); uerr != nil {
			u.logger.ErrorContext(ctx, "failed to mark job failed", "job_id", created.ID.String(), "err", uerr.Error())
		}
		return created, err
	}
	u.publishJobEvent(ctx, created, "", nil)
	return created, nil
}

// FailStaleJobs marks jobs stuck in PROCESSING longer than maxAge as FAILED.
// Workers that die mid-export leave such rows behind.
func (u Usecase) FailStaleJobs(ctx context.Context, maxAge time.Duration) (int, error) {
	before := u.now().Add(-maxAge)
	jobs, _, err := u.repo.ListJobs(ctx, ListJobsOption{
		Statuses:      []string{JobStatusProcessing},
		StartedBefore: &before,
	})
	if err != nil {
		return 0, err
	}

	var n int
	for _, job := range jobs {
		finished := u.now()
		job.Status = JobStatusFailed
		job.Error = "export abandoned by worker"
		job.FinishedAt = &finished
		if _, err := u.repo.UpdateJob(ctx, job); err != nil {
			return n, err
		}
		u.publishJobEvent(ctx, job, string(ExportStateFailed), nil)
		n++
	}
	return n, nil
}

func (u Usecase) publishJobEvent(ctx context.Context, job Job, state string, cause error) {
	if u.publisher == nil {
		return
	}
	ev := JobEvent{
		JobID:     job.ID,
		Status:    job.Status,
		State:     state,
		Timestamp: u.now(),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	if err := u.publisher.PublishJobEvent(ctx, ev); err != nil {
		u.logger.WarnContext(ctx, "failed to publish job event",
			"job_id", job.ID.String(), "err", err.Error())
	}
}
