package filestorage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

// LocalStorage writes exports below a directory on the host, the way the
// desktop app saves a download.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &LocalStorage{dir: abs}, nil
}

// Deliver writes to a temp file first and renames it, so readers never see a
// partial export.
func (l *LocalStorage) Deliver(ctx context.Context, data []byte, filename, mimeType string) (usecase.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return usecase.Delivery{}, err
	}
	key := objectKey("", filename)
	if key == "" {
		return usecase.Delivery{}, fmt.Errorf("empty filename")
	}
	dst := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return usecase.Delivery{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".export-*")
	if err != nil {
		return usecase.Delivery{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return usecase.Delivery{}, err
	}
	if err := tmp.Close(); err != nil {
		return usecase.Delivery{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return usecase.Delivery{}, err
	}

	return usecase.Delivery{
		Location: key,
		Filename: path.Base(key),
		MimeType: mimeType,
		Size:     len(data),
	}, nil
}

// GetPresignedURL returns a file URL. Local files need no signature.
func (l *LocalStorage) GetPresignedURL(_ context.Context, key string) (string, error) {
	p := filepath.Join(l.dir, filepath.FromSlash(objectKey("", key)))
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(), nil
}

func (l *LocalStorage) Dir() string { return l.dir }
