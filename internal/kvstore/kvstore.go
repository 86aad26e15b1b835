// Package kvstore keeps projects, annotations and export jobs in Redis. It is
// the lightweight alternative to the relational backend in internal/database.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

const defaultPrefix = "vl"

// mgetChunk bounds the number of keys sent in one MGET.
const mgetChunk = 500

type Store struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New wraps an existing client. An empty prefix defaults to "vl".
func New(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, now: time.Now}
}

// Open dials Redis with the REDIS_* environment keys and instruments the client
// with OpenTelemetry tracing.
func Open() (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv(config.ENV_KEY_REDIS_HOST), os.Getenv(config.ENV_KEY_REDIS_PORT)),
		Password: os.Getenv(config.ENV_KEY_REDIS_PASSWORD),
	})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("instrument redis: %w", err)
	}
	return New(rdb, os.Getenv(config.ENV_KEY_REDIS_PREFIX)), nil
}

func (s *Store) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["dialect"] = "redis"
	return stats
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *Store) projectKey(id string) string          { return s.key("project", id) }
func (s *Store) projectImagesKey(id string) string    { return s.key("project", id, "images") }
func (s *Store) projectLabelsKey(id string) string    { return s.key("project", id, "labels") }
func (s *Store) projectsKey() string                  { return s.key("projects") }
func (s *Store) imageKey(id string) string            { return s.key("image", id) }
func (s *Store) imageAnnotationsKey(id string) string { return s.key("image", id, "annotations") }
func (s *Store) annotationKey(id string) string       { return s.key("annotation", id) }
func (s *Store) labelKey(id string) string            { return s.key("label", id) }
func (s *Store) jobKey(id string) string              { return s.key("job", id) }
func (s *Store) jobsKey() string                      { return s.key("jobs") }

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// mgetJSON loads keys in order. Missing keys are skipped.
func mgetJSON[T any](ctx context.Context, rdb redis.UniversalClient, keys []string) ([]T, error) {
	out := make([]T, 0, len(keys))
	for start := 0; start < len(keys); start += mgetChunk {
		end := min(start+mgetChunk, len(keys))
		vals, err := rdb.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var rec T
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				return nil, fmt.Errorf("decode %s: %w", keys[start+i], err)
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func setJSON(ctx context.Context, p redis.Cmdable, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Set(ctx, key, b, 0).Err()
}

func paginate[T any](list []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(list) {
			return nil
		}
		list = list[skip:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
