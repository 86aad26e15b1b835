package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	consts "github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

func NewMinIOStorage(bucket, exportPath, endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*MinIOStorage, error) {
	m, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinIOStorage{
		client:     m,
		bucket:     bucket,
		exportPath: exportPath,
	}, nil
}

type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	exportPath string
}

// Deliver uploads data under the export path. The returned Location is the
// object key, ready for GetPresignedURL.
func (f *MinIOStorage) Deliver(ctx context.Context, data []byte, filename, mimeType string) (usecase.Delivery, error) {
	key := objectKey(f.exportPath, filename)
	_, err := f.client.PutObject(ctx, f.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:        mimeType,
		ContentDisposition: attachment(filename),
	})
	if err != nil {
		return usecase.Delivery{}, err
	}
	return usecase.Delivery{
		Location: key,
		Filename: path.Base(filename),
		MimeType: mimeType,
		Size:     len(data),
	}, nil
}

func (f *MinIOStorage) GetPresignedURL(ctx context.Context, key string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", attachment(key))
	u, err := f.client.PresignedGetObject(ctx, f.bucket, key, time.Minute*consts.PRESIGN_URL_EXPIRE_MINUTES, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
