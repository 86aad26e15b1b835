// Package bootstrap assembles the usecase collaborators shared by the API and
// the worker from environment configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/database"
	"github.com/vailabel/vailabel-studio-sub002/internal/email"
	"github.com/vailabel/vailabel-studio-sub002/internal/events"
	"github.com/vailabel/vailabel-studio-sub002/internal/filestorage"
	"github.com/vailabel/vailabel-studio-sub002/internal/kvstore"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type Deps struct {
	Repo      usecase.Repository
	Storage   usecase.FileStorageProvider
	Mailer    usecase.Mailer
	Bus       *events.RedisBus
	Publisher usecase.JobEventPublisher

	closers []func() error
}

func RedisAddr() string {
	return fmt.Sprintf("%s:%s", os.Getenv(config.ENV_KEY_REDIS_HOST), os.Getenv(config.ENV_KEY_REDIS_PORT))
}

// New builds every collaborator. Partial results are closed on error.
func New(ctx context.Context, logger *slog.Logger) (_ *Deps, err error) {
	deps := &Deps{}
	defer func() {
		if err != nil {
			deps.Close()
		}
	}()

	if deps.Repo, err = Repository(logger); err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, deps.Repo.Close)

	if deps.Storage, err = filestorage.FromEnv(ctx); err != nil {
		return nil, err
	}

	if host := os.Getenv(config.ENV_KEY_SMTP_HOST); host != "" {
		mp, merr := email.NewEmailProvider(
			host,
			os.Getenv(config.ENV_KEY_SMTP_USERNAME),
			os.Getenv(config.ENV_KEY_SMTP_PASSWORD),
			os.Getenv(config.ENV_KEY_SMTP_PORT),
			logger,
		)
		if merr != nil {
			return nil, merr
		}
		deps.Mailer = mp
		deps.closers = append(deps.closers, mp.Close)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     RedisAddr(),
		Password: os.Getenv(config.ENV_KEY_REDIS_PASSWORD),
	})
	deps.closers = append(deps.closers, rdb.Close)
	if err = redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}
	deps.Bus = events.NewRedisBus(rdb, os.Getenv(config.ENV_KEY_REDIS_PREFIX), logger)

	publishers := events.Multi{deps.Bus}
	if brokers := os.Getenv(config.ENV_KEY_KAFKA_BROKERS); brokers != "" {
		kp := events.NewKafkaPublisher(brokers, os.Getenv(config.ENV_KEY_KAFKA_EVENT_TOPIC))
		deps.closers = append(deps.closers, kp.Close)
		publishers = append(publishers, kp)
	}
	deps.Publisher = publishers
	return deps, nil
}

// Repository opens the backend named by DB_DRIVER.
func Repository(logger *slog.Logger) (usecase.Repository, error) {
	c := database.ConfigFromEnv()
	if c.Driver == config.DB_DRIVER_REDIS {
		s, err := kvstore.Open()
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	db, err := database.Open(c, logger)
	if err != nil {
		return nil, err
	}
	s, err := database.New(db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases resources in reverse order of creation.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}
