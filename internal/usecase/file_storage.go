package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Delivery describes where a sink put an export.
type Delivery struct {
	Location string
	Filename string
	MimeType string
	Size     int
}

type Sink interface {
	Deliver(ctx context.Context, data []byte, filename, mimeType string) (Delivery, error)
}

// GetJobDownloadURL presigns the artifact of a completed export job.
func (u Usecase) GetJobDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	job, err := u.GetJobByID(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != JobStatusCompleted {
		return "", ErrInvalidArgument{Field: "status", Message: fmt.Sprintf("job %s is %s", id, job.Status)}
	}

	var res ExportJobResult
	if err := json.Unmarshal(job.Result, &res); err != nil {
		return "", fmt.Errorf("failed to parse job result: %w", err)
	}
	if u.fileStorageProvider == nil {
		return "", fmt.Errorf("file storage is not configured")
	}
	return u.fileStorageProvider.GetPresignedURL(ctx, res.Path)
}
