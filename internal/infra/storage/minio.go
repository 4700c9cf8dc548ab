package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"meeting-scribe/internal/config"
	"meeting-scribe/internal/domain/ports/adapter"
)

var _ adapter.ObjectStorage = (*MinioStorage)(nil)

// MinioStorage keeps meeting recordings in an S3-compatible bucket.
type MinioStorage struct {
	cli           *minio.Client
	bucket        string
	publicBaseURL string
}

func NewMinioStorage(ctx context.Context, cfg *config.StorageConfig) (*MinioStorage, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket check: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}

	return &MinioStorage{
		cli:           cli,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, path string, content []byte, contentType string) error {
	_, err := s.cli.PutObject(ctx, s.bucket, path, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

func (s *MinioStorage) PublicURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, path)
}

func (s *MinioStorage) Download(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.cli.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func (s *MinioStorage) Remove(ctx context.Context, paths ...string) error {
	var firstErr error
	for _, p := range paths {
		if err := s.cli.RemoveObject(ctx, s.bucket, p, minio.RemoveObjectOptions{}); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return firstErr
}

// KeyFromURL maps a recording's public URL back to its bucket key so the
// worker can fetch the object without a second lookup.
func (s *MinioStorage) KeyFromURL(url string) string {
	prefix := s.publicBaseURL + "/" + s.bucket + "/"
	return strings.TrimPrefix(url, prefix)
}
