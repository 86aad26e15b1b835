package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

func New(
	repo Repository,
	fsp FileStorageProvider,
	mailer Mailer,
	queue Queue,
	publisher JobEventPublisher,
	logger *slog.Logger,
) Usecase {
	if logger == nil {
		logger = slog.Default()
	}
	return Usecase{
		repo:                repo,
		fileStorageProvider: fsp,
		mailer:              mailer,
		queue:               queue,
		publisher:           publisher,
		logger:              logger,
		now:                 time.Now,
	}
}

// Repository is implemented by every storage backend: the gorm service in
// internal/database and the Redis store in internal/kvstore.
type Repository interface {
	Health() map[string]string
	Close() error

	ListProjects(context.Context, ListProjectsOption) ([]Project, int, error)
	GetProjectByID(context.Context, string) (Project, error)
	ListImages(context.Context, ListImagesOption) ([]Image, int, error)
	ListAnnotations(context.Context, ListAnnotationsOption) ([]Annotation, error)
	ListLabels(context.Context, string) ([]Label, error)
	UpdateAnnotation(context.Context, string, AnnotationUpdate) (Annotation, error)

	CreateJob(context.Context, Job) (Job, error)
	ListJobs(context.Context, ListJobsOption) ([]Job, int, error)
	GetJobByID(context.Context, uuid.UUID) (Job, error)
	UpdateJob(context.Context, Job) (Job, error)
}

type FileStorageProvider interface {
	Sink
	GetPresignedURL(ctx context.Context, path string) (string, error)
}

type Mailer interface {
	SendEmail(context.Context, Email) error
}

type Queue interface {
	EnqueueJob(ctx context.Context, jobID uuid.UUID, jobType string, payload []byte) error
}

type JobEventPublisher interface {
	PublishJobEvent(context.Context, JobEvent) error
}

type Usecase struct {
	repo                Repository
	fileStorageProvider FileStorageProvider
	mailer              Mailer
	queue               Queue
	publisher           JobEventPublisher
	logger              *slog.Logger
	now                 func() time.Time
}

// WithClock returns a copy of u that reads time from now.
func (u Usecase) WithClock(now func() time.Time) Usecase {
	u.now = now
	return u
}

func (u Usecase) Health() map[string]string {
	return u.repo.Health()
}

func (u Usecase) Close() error {
	return u.repo.Close()
}
