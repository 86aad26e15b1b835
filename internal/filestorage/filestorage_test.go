package filestorage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "a.json", "a.json"},
		{"exports", "job/a.zip", "exports/job/a.zip"},
		{"/exports/", "a.zip", "exports/a.zip"},
		{"", "../../etc/passwd", "etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+"|"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectKey(tt.prefix, tt.name))
		})
	}
}

func TestAttachment(t *testing.T) {
	assert.Equal(t, "attachment; filename=street-coco.json", attachment("exports/1/street-coco.json"))
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	d, err := s.Deliver(ctx, []byte("PK\x03\x04"), "exports/job-1/street-yolo.zip", "application/zip")
	require.NoError(t, err)
	assert.Equal(t, usecase.Delivery{
		Location: "exports/job-1/street-yolo.zip",
		Filename: "street-yolo.zip",
		MimeType: "application/zip",
		Size:     4,
	}, d)

	b, err := os.ReadFile(filepath.Join(dir, "exports", "job-1", "street-yolo.zip"))
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), b)

	entries, err := os.ReadDir(filepath.Join(dir, "exports", "job-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	u, err := s.GetPresignedURL(ctx, d.Location)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/exports/job-1/street-yolo.zip"))

	_, err = s.GetPresignedURL(ctx, "missing.zip")
	assert.Error(t, err)

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Deliver(cctx, []byte("x"), "x.json", "application/json")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	data := []byte(`{"images":[]}`)
	d, err := s.Deliver(ctx, data, "street-export.json", "application/json")
	require.NoError(t, err)
	data[0] = 'X'

	got, mimeType, ok := s.Get(d.Location)
	require.True(t, ok)
	assert.Equal(t, `{"images":[]}`, string(got))
	assert.Equal(t, "application/json", mimeType)

	_, err = s.GetPresignedURL(ctx, "nope")
	var nf usecase.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestFromEnv(t *testing.T) {
	t.Run("local default", func(t *testing.T) {
		t.Setenv(config.ENV_KEY_STORAGE_DRIVER, "")
		t.Setenv(config.ENV_KEY_LOCAL_EXPORT_DIR, t.TempDir())
		p, err := FromEnv(context.Background())
		require.NoError(t, err)
		assert.IsType(t, &LocalStorage{}, p)
	})
	t.Run("unknown", func(t *testing.T) {
		t.Setenv(config.ENV_KEY_STORAGE_DRIVER, "ftp")
		_, err := FromEnv(context.Background())
		assert.Error(t, err)
	})
}
