package queue

import (
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

const cleanupSpec = "@every 5m"

type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewScheduler registers the periodic stale export cleanup.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s := asynq.NewScheduler(redisOpt(), &asynq.SchedulerOpts{
		Logger:   NewSlogAdapter(logger),
		LogLevel: asynqLogLevel(),
	})

	entryID, err := s.Register(cleanupSpec,
		asynq.NewTask(config.TASK_EXPORT_CLEANUP, nil),
		asynq.Queue(queueFor(config.TASK_EXPORT_CLEANUP)),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("scheduled task",
		slog.String("type", config.TASK_EXPORT_CLEANUP),
		slog.String("spec", cleanupSpec),
		slog.String("entry_id", entryID),
	)
	return &Scheduler{scheduler: s, logger: logger}, nil
}

func (s *Scheduler) Start() error {
	s.logger.Info("scheduler started")
	return s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.scheduler.Shutdown()
}
