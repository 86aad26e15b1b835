package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/vailabel/vailabel-studio-sub002/internal/bootstrap"
	"github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/export"
	"github.com/vailabel/vailabel-studio-sub002/internal/queue"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

// Service is the usecase surface the HTTP API depends on.
type Service interface {
	Health() map[string]string

	ListExportFormats() []export.FormatInfo

	ListProjects(context.Context, usecase.ListProjectsOption) ([]usecase.Project, int, error)
	GetProjectByID(context.Context, string) (usecase.Project, error)
	ListImages(context.Context, usecase.ListImagesOption) ([]usecase.Image, int, error)
	UpdateAnnotation(context.Context, string, usecase.AnnotationUpdate) (usecase.Annotation, error)

	ExportProject(context.Context, usecase.ExportProjectOption) (usecase.ExportResult, error)
	CreateExportJob(context.Context, usecase.ExportProjectJobPayload) (usecase.Job, error)

	ListJobs(context.Context, usecase.ListJobsOption) ([]usecase.Job, int, error)
	GetJobByID(context.Context, uuid.UUID) (usecase.Job, error)
	GetJobDownloadURL(context.Context, uuid.UUID) (string, error)
}

// EventSubscriber streams the state changes of one job.
type EventSubscriber interface {
	Subscribe(ctx context.Context, jobID uuid.UUID) (<-chan usecase.JobEvent, error)
}

type Server struct {
	server    Service
	events    EventSubscriber
	validator *validator.Validate
	logger    *slog.Logger

	// exportLimiter throttles synchronous exports, which run inside the request.
	exportLimiter *rate.Limiter
	exports       singleflight.Group
}

func NewServer(svc Service, events EventSubscriber, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		server:        svc,
		events:        events,
		validator:     validator.New(),
		logger:        logger,
		exportLimiter: newExportLimiter(os.Getenv(config.ENV_KEY_EXPORT_RATE_LIMIT)),
	}
}

// newExportLimiter allows limit synchronous exports per second, 5 by default.
func newExportLimiter(limit string) *rate.Limiter {
	n, err := strconv.Atoi(limit)
	if err != nil || n <= 0 {
		n = 5
	}
	return rate.NewLimiter(rate.Limit(n), n)
}

// App is the API process: HTTP server plus the resources behind it.
type App struct {
	httpServer *http.Server
	deps       *bootstrap.Deps
	queue      *queue.Client
	logger     *slog.Logger
}

func NewApp(ctx context.Context, logger *slog.Logger) (*App, error) {
	deps, err := bootstrap.New(ctx, logger)
	if err != nil {
		return nil, err
	}
	qc := queue.NewClient(bootstrap.RedisAddr(), os.Getenv(config.ENV_KEY_REDIS_PASSWORD), logger)
	uc := usecase.New(deps.Repo, deps.Storage, deps.Mailer, qc, deps.Publisher, logger)

	port, _ := strconv.Atoi(os.Getenv(config.ENV_KEY_PORT))
	if port == 0 {
		port = 8080
	}

	s := NewServer(uc, deps.Bus, logger)
	return &App{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			Handler:     s.RegisterRoutes(),
			IdleTimeout: time.Minute,
			ReadTimeout: 10 * time.Second,
			// exports and event streams write for longer than a plain request
			WriteTimeout: 5 * time.Minute,
		},
		deps:   deps,
		queue:  qc,
		logger: logger,
	}, nil
}

func (a *App) Addr() string {
	return a.httpServer.Addr
}

func (a *App) ListenAndServe() error {
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)
	if cerr := a.queue.Close(); cerr != nil {
		a.logger.Error("error closing queue client", slog.Any("error", cerr))
	}
	if cerr := a.deps.Close(); cerr != nil {
		a.logger.Error("error closing dependencies", slog.Any("error", cerr))
	}
	return err
}
