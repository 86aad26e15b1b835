// Package filestorage holds the sinks an export can be delivered to.
package filestorage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

// FromEnv builds the provider selected by STORAGE_DRIVER. Unset means local.
func FromEnv(ctx context.Context) (usecase.FileStorageProvider, error) {
	switch driver := os.Getenv(config.ENV_KEY_STORAGE_DRIVER); driver {
	case config.STORAGE_DRIVER_MINIO:
		return NewMinIOStorage(
			os.Getenv(config.ENV_KEY_MINIO_BUCKET),
			os.Getenv(config.ENV_KEY_MINIO_EXPORT_PATH),
			os.Getenv(config.ENV_KEY_MINIO_ENDPOINT),
			os.Getenv(config.ENV_KEY_MINIO_ACCESS_KEY),
			os.Getenv(config.ENV_KEY_MINIO_SECRET_KEY),
			os.Getenv(config.ENV_KEY_MINIO_USE_SSL) != "false",
		)
	case config.STORAGE_DRIVER_S3:
		return NewS3Storage(ctx,
			os.Getenv(config.ENV_KEY_S3_BUCKET),
			os.Getenv(config.ENV_KEY_S3_EXPORT_PATH),
		)
	case config.STORAGE_DRIVER_LOCAL, "":
		dir := os.Getenv(config.ENV_KEY_LOCAL_EXPORT_DIR)
		if dir == "" {
			dir = "exports"
		}
		return NewLocalStorage(dir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// objectKey joins prefix and name into a clean slash separated key without a
// leading slash.
func objectKey(prefix, name string) string {
	return strings.TrimPrefix(path.Join("/", prefix, name), "/")
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(name)})
}
