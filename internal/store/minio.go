package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioMaxRetries bounds the startup connection retry loop. Backoff is
// exponential: 1s, 2s, 4s, 8s, 16s. Retrying happens at startup only; at
// request time the store fails fast.
const minioMaxRetries = 5

// MinioConfig holds connection settings for the S3-compatible store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore is a BlobStore backed by S3-compatible object storage.
type MinioStore struct {
	client *minio.Client
	bucket string
}

var _ BlobStore = (*MinioStore)(nil)

// NewMinioStore connects to the object store, retrying with exponential
// backoff so the service can come up before its storage does, and ensures
// the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig, logger *slog.Logger) (*MinioStore, error) {
	var lastErr error
	for attempt := 0; attempt < minioMaxRetries; attempt++ {
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err == nil {
			exists, bErr := client.BucketExists(ctx, cfg.Bucket)
			if bErr == nil {
				if !exists {
					if mErr := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); mErr != nil {
						return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, mErr)
					}
				}
				logger.Info("blob store connected", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
				return &MinioStore{client: client, bucket: cfg.Bucket}, nil
			}
			err = bErr
		}

		lastErr = err
		backoff := time.Duration(1<<attempt) * time.Second
		logger.Warn("blob store unreachable, retrying",
			"attempt", attempt+1,
			"max_attempts", minioMaxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("connect to blob store after %d attempts: %w", minioMaxRetries, lastErr)
}

// Save stores the source as functions/{id}.js in the bucket.
func (s *MinioStore) Save(ctx context.Context, id, source string) error {
	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		objectName(id),
		bytes.NewReader([]byte(source)),
		int64(len(source)),
		minio.PutObjectOptions{ContentType: "application/javascript"},
	)
	if err != nil {
		return fmt.Errorf("save function %s: %w", id, err)
	}
	return nil
}

// Get retrieves the source for id, or ErrNotFound.
func (s *MinioStore) Get(ctx context.Context, id string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName(id), minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get function %s: %w", id, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read function %s: %w", id, err)
	}
	return string(data), nil
}

// Exists reports whether the object for id is present.
func (s *MinioStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectName(id), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat function %s: %w", id, err)
	}
	return true, nil
}
