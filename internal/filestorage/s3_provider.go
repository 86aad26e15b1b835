package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	consts "github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type S3Storage struct {
	client     *s3.Client
	bucket     string
	exportPath string
}

// NewS3Storage reads credentials and region from the default AWS chain.
func NewS3Storage(ctx context.Context, bucket, exportPath string) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return &S3Storage{
		client:     s3.NewFromConfig(cfg),
		bucket:     bucket,
		exportPath: exportPath,
	}, nil
}

func (f *S3Storage) Deliver(ctx context.Context, data []byte, filename, mimeType string) (usecase.Delivery, error) {
	var (
		key         = objectKey(f.exportPath, filename)
		size        = int64(len(data))
		disposition = attachment(filename)
	)
	_, err := f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             &f.bucket,
		Key:                &key,
		Body:               bytes.NewReader(data),
		ContentLength:      &size,
		ContentType:        &mimeType,
		ContentDisposition: &disposition,
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

func (f *S3Storage) GetPresignedURL(ctx context.Context, key string) (string, error) {
	presignClient := s3.NewPresignClient(f.client)
	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &f.bucket,
		Key:    &key,
	}, func(po *s3.PresignOptions) {
		po.Expires = time.Minute * consts.PRESIGN_URL_EXPIRE_MINUTES
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
