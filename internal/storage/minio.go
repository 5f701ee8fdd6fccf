package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const healthCheckInterval = 5 * time.Second

// MinioConfig describes how to reach an S3-compatible bucket.
type MinioConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Region     string
	Bucket     string
	PublicBase string
	UseSSL     bool
	PublicRead bool
}

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
// Pointing it at R2 or S3 is a matter of endpoint, region and credentials.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
	stopHealth context.CancelFunc
	log        *zap.Logger
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists (optionally
// with a public-read policy), starts the client health check and returns a
// ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, cfg MinioConfig, log *zap.Logger) (*MinioStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	log = log.With(zap.String("component", "storage"), zap.String("bucket", cfg.Bucket))

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		log.Info("created bucket")
	}

	if cfg.PublicRead {
		if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy: %w", err)
		}
	}

	stop, err := client.HealthCheck(healthCheckInterval)
	if err != nil {
		return nil, fmt.Errorf("start health check: %w", err)
	}

	return &MinioStorage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBase,
		stopHealth: stop,
		log:        log,
	}, nil
}

// Ready returns ErrOffline once the background health check has seen the
// endpoint go down.
func (s *MinioStorage) Ready(_ context.Context) error {
	if s.client.IsOffline() {
		return fmt.Errorf("bucket %q: %w", s.bucket, ErrOffline)
	}
	return nil
}

// Upload streams reader to the bucket under key. With size -1 the client
// falls back to a multipart upload with bounded part buffers.
func (s *MinioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	s.log.Debug("object stored", zap.String("key", key), zap.String("etag", info.ETag), zap.Int64("size", info.Size))
	return nil
}

// PublicURL returns the browser-accessible URL for the given key.
// For local MinIO: "http://localhost:9000/uploads/games/gz/1700000000000-cover.webp"
// For an R2 custom domain: "https://image.example.com/games/gz/1700000000000-cover.webp"
func (s *MinioStorage) PublicURL(key string) string {
	return JoinURL(s.publicBase, escapeKey(key))
}

// Close stops the background health check.
func (s *MinioStorage) Close() {
	if s.stopHealth != nil {
		s.stopHealth()
	}
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
