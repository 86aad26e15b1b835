// Package events fans export job state changes out to live subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

// RedisBus publishes job events on one pub/sub channel per job.
type RedisBus struct {
	rdb    redis.UniversalClient
	prefix string
	logger *slog.Logger
}

func NewRedisBus(rdb redis.UniversalClient, prefix string, logger *slog.Logger) *RedisBus {
	if prefix == "" {
		prefix = "vl"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{rdb: rdb, prefix: prefix, logger: logger}
}

func (b *RedisBus) channel(jobID uuid.UUID) string {
	return fmt.Sprintf("%s:job:%s:events", b.prefix, jobID)
}

func (b *RedisBus) PublishJobEvent(ctx context.Context, ev usecase.JobEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel(ev.JobID), payload).Err()
}

// Subscribe streams events of one job until ctx is done. The returned channel
// is closed when the subscription ends.
func (b *RedisBus) Subscribe(ctx context.Context, jobID uuid.UUID) (<-chan usecase.JobEvent, error) {
	sub := b.rdb.Subscribe(ctx, b.channel(jobID))
	// wait for the confirmation so no event published afterwards is missed
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan usecase.JobEvent)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev usecase.JobEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("drop malformed job event", slog.String("channel", msg.Channel), slog.Any("error", err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Multi publishes to every publisher and joins their errors.
type Multi []usecase.JobEventPublisher

func (m Multi) PublishJobEvent(ctx context.Context, ev usecase.JobEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishJobEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
