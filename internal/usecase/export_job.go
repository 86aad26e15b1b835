package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/export"
)

type ExportProjectJobPayload struct {
	ProjectID      string        `json:"project_id"`
	Format         export.Format `json:"format"`
	FilenamePrefix string        `json:"filename_prefix,omitempty"`
	NormalizeBoxes bool          `json:"normalize_boxes,omitempty"`
	Strict         bool          `json:"strict,omitempty"`
	NotifyEmail    string        `json:"notify_email,omitempty"`
}

type ExportJobResult struct {
	Path     string         `json:"path"`
	Name     string         `json:"name"`
	Size     int            `json:"size"`
	MimeType string         `json:"mime_type"`
	Skipped  export.Skipped `json:"skipped,omitempty"`
}

// CreateExportJob validates the request up front so that obviously bad jobs
// never reach the queue.
func (u Usecase) CreateExportJob(ctx context.Context, p ExportProjectJobPayload) (Job, error) {
	f, err := export.ParseFormat(string(p.Format))
	if err != nil {
		return Job{}, ErrInvalidArgument{Field: "format", Message: err.Error()}
	}
	p.Format = f
	if _, err := u.GetProjectByID(ctx, p.ProjectID); err != nil {
		return Job{}, err
	}

	b, err := json.Marshal(p)
	if err != nil {
		return Job{}, err
	}
	return u.CreateJob(ctx, Job{
		Type:    config.TASK_EXPORT_PROJECT,
		Status:  JobStatusPending,
		Payload: b,
	})
}

// ProcessExportProjectJob runs the export of one job. A failure marks the job
// FAILED only when it is permanent or lastAttempt is set; otherwise the job
// stays PROCESSING for the next attempt.
func (u Usecase) ProcessExportProjectJob(ctx context.Context, jobID uuid.UUID, lastAttempt bool) error {
	job, err := u.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	var payload ExportProjectJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse job payload: %w", err)
	}

	now := u.now()
	job.Status = JobStatusProcessing
	job.StartedAt = &now
	job.Error = ""
	if job, err = u.repo.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to update job to PROCESSING: %w", err)
	}

	if u.fileStorageProvider == nil {
		return u.attemptFailed(ctx, job, fmt.Errorf("file storage is not configured"), lastAttempt)
	}

	res, err := u.ExportProject(ctx, ExportProjectOption{
		ProjectID:      payload.ProjectID,
		Format:         payload.Format,
		FilenamePrefix: payload.FilenamePrefix,
		NormalizeBoxes: payload.NormalizeBoxes,
		Strict:         payload.Strict,
		Sink:           exportJobSink{sink: u.fileStorageProvider, dir: jobID.String()},
		OnState: func(s ExportState) {
			// terminal states are published with the final job status below
			if s == ExportStateDone || s == ExportStateFailed {
				return
			}
			u.publishJobEvent(ctx, job, string(s), nil)
		},
	})
	if err != nil {
		return u.attemptFailed(ctx, job, err, lastAttempt)
	}

	result, err := json.Marshal(ExportJobResult{
		Path:     res.Delivery.Location,
		Name:     res.Filename,
		Size:     res.Size,
		MimeType: res.MimeType,
		Skipped:  res.Skipped,
	})
	if err != nil {
		return u.attemptFailed(ctx, job, err, lastAttempt)
	}

	finished := u.now()
	job.Status = JobStatusCompleted
	job.Result = result
	job.FinishedAt = &finished
	if _, err := u.repo.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to update job to COMPLETED: %w", err)
	}
	u.publishJobEvent(ctx, job, string(ExportStateDone), nil)

	if payload.NotifyEmail != "" {
		if err := u.SendExportReadyEmail(ctx, payload.NotifyEmail, job, res); err != nil {
			// the export itself succeeded
			u.logger.WarnContext(ctx, "failed to send export email",
				"job_id", job.ID.String(), "err", err.Error())
		}
	}
	return nil
}

func (u Usecase) attemptFailed(ctx context.Context, job Job, cause error, lastAttempt bool) error {
	if lastAttempt || IsPermanent(cause) {
		return u.failJob(ctx, job, cause)
	}
	return u.retryJob(ctx, job, cause)
}

// retryJob records the failed attempt on a job that stays PROCESSING.
func (u Usecase) retryJob(ctx context.Context, job Job, cause error) error {
	job.Error = cause.Error()
	if _, err := u.repo.UpdateJob(ctx, job); err != nil {
		u.logger.ErrorContext(ctx, "failed to record failed attempt",
			"job_id", job.ID.String(), "err", err.Error())
	}
	u.publishJobEvent(ctx, job, JobStateRetrying, cause)
	return fmt.Errorf("export attempt failed: %w", cause)
}

func (u Usecase) failJob(ctx context.Context, job Job, cause error) error {
	finished := u.now()
	job.Status = JobStatusFailed
	job.Error = cause.Error()
	job.FinishedAt = &finished
	if _, err := u.repo.UpdateJob(ctx, job); err != nil {
		u.logger.ErrorContext(ctx, "failed to update job to FAILED",
			"job_id", job.ID.String(), "err", err.Error())
	}
	u.publishJobEvent(ctx, job, string(ExportStateFailed), cause)
	return fmt.Errorf("export failed: %w", cause)
}

// IsPermanent reports whether retrying err can never succeed.
func IsPermanent(err error) bool {
	switch {
	case errorAs[ErrNotFound](err),
		errorAs[ErrInvalidArgument](err),
		errorAs[ErrEmptyDataset](err),
		errorAs[ErrValidation](err):
		return true
	}
	return false
}

// exportJobSink files every job's artifact under its own directory.
type exportJobSink struct {
	sink Sink
	dir  string
}

func (s exportJobSink) Deliver(ctx context.Context, data []byte, filename, mimeType string) (Delivery, error) {
	return s.sink.Deliver(ctx, data, strings.Join([]string{"exports", s.dir, filename}, "/"), mimeType)
}
