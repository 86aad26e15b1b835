package filestorage

import (
	"context"
	"path"
	"sync"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

// MemoryStorage keeps delivered exports in memory. The HTTP API uses it to
// capture the bytes of a synchronous export before streaming them back.
type MemoryStorage struct {
	mu    sync.RWMutex
	files map[string]memoryFile
}

type memoryFile struct {
	data     []byte
	mimeType string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{files: make(map[string]memoryFile)}
}

func (m *MemoryStorage) Deliver(ctx context.Context, data []byte, filename, mimeType string) (usecase.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return usecase.Delivery{}, err
	}
	key := objectKey("", filename)
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.files[key] = memoryFile{data: buf, mimeType: mimeType}
	m.mu.Unlock()

	return usecase.Delivery{
		Location: key,
		Filename: path.Base(key),
		MimeType: mimeType,
		Size:     len(data),
	}, nil
}

// Get returns the bytes stored under key.
func (m *MemoryStorage) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[key]
	return f.data, f.mimeType, ok
}

func (m *MemoryStorage) GetPresignedURL(_ context.Context, key string) (string, error) {
	if _, _, ok := m.Get(key); !ok {
		return "", usecase.ErrNotFound{ID: key, Code: "file_not_found", Message: "file " + key + " not found"}
	}
	return "memory://" + key, nil
}
