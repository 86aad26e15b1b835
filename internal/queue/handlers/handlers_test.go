package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type fakeUsecase struct {
	processed []uuid.UUID
	last      []bool
	err       error
	maxAge    time.Duration
	stale     int
}

func (f *fakeUsecase) ProcessExportProjectJob(_ context.Context, id uuid.UUID, last bool) error {
	f.processed = append(f.processed, id)
	f.last = append(f.last, last)
	return f.err
}

func (f *fakeUsecase) FailStaleJobs(_ context.Context, maxAge time.Duration) (int, error) {
	f.maxAge = maxAge
	return f.stale, f.err
}

func newTestHandlers(uc *fakeUsecase) *Handlers {
	return NewHandlers(uc, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
}

func exportTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(TaskPayload{JobID: jobID, Type: "export:project"})
	require.NoError(t, err)
	return asynq.NewTask("export:project", b)
}

func TestHandleExportProject(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		uc := &fakeUsecase{}
		id := uuid.New()
		require.NoError(t, newTestHandlers(uc).HandleExportProject(ctx, exportTask(t, id.String())))
		assert.Equal(t, []uuid.UUID{id}, uc.processed)
		// no retry metadata outside asynq
		assert.Equal(t, []bool{true}, uc.last)
	})

	t.Run("malformed payload skips retry", func(t *testing.T) {
		uc := &fakeUsecase{}
		err := newTestHandlers(uc).HandleExportProject(ctx, asynq.NewTask("export:project", []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.Empty(t, uc.processed)
	})

	t.Run("bad job id skips retry", func(t *testing.T) {
		err := newTestHandlers(&fakeUsecase{}).HandleExportProject(ctx, exportTask(t, "nope"))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("permanent failure skips retry", func(t *testing.T) {
		uc := &fakeUsecase{err: usecase.ErrEmptyDataset{ProjectID: "p1"}}
		err := newTestHandlers(uc).HandleExportProject(ctx, exportTask(t, uuid.NewString()))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		uc := &fakeUsecase{err: usecase.ErrIO{Op: "deliver", Err: errors.New("timeout")}}
		err := newTestHandlers(uc).HandleExportProject(ctx, exportTask(t, uuid.NewString()))
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleExportCleanup(t *testing.T) {
	uc := &fakeUsecase{stale: 2}
	require.NoError(t, newTestHandlers(uc).HandleExportCleanup(context.Background(), asynq.NewTask("export:cleanup", nil)))
	assert.Equal(t, time.Hour, uc.maxAge)
}
