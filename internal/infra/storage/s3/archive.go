// Package s3 stores exported calendar files in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"staybook/internal/app/policies"
)

type Config struct {
	Endpoint      string
	UseSSL        bool
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	// PublicRead makes the bucket anonymously readable when it is created.
	PublicRead bool
}

// Archive is a MinIO/S3 backed calendar archive.
type Archive struct {
	cfg            Config
	publicBaseURL  string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewArchive(cfg Config, logger *slog.Logger) (*Archive, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if cfg.Bucket = strings.TrimSpace(cfg.Bucket); cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	client, err := minio.New(parseEndpoint(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	base := strings.TrimSpace(cfg.PublicBaseURL)
	if base == "" {
		base = cfg.Endpoint
	}
	return &Archive{
		cfg:           cfg,
		publicBaseURL: strings.TrimRight(base, "/"),
		client:        client,
		logger:        logger,
	}, nil
}

// Upload stores the content under key and returns its public URL.
func (a *Archive) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := a.client.PutObject(ctx, a.cfg.Bucket, key, reader, -1, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	publicURL := a.objectURL(key)
	if a.logger != nil {
		a.logger.InfoContext(ctx, "calendar archived", "bucket", a.cfg.Bucket, "key", key, "url", publicURL)
	}
	return publicURL, nil
}

// Ping backs the readiness probe.
func (a *Archive) Ping(ctx context.Context) error {
	if _, err := a.client.BucketExists(ctx, a.cfg.Bucket); err != nil {
		return fmt.Errorf("s3: check bucket: %w", err)
	}
	return nil
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	a.bucketInitOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.cfg.Bucket)
		if err != nil {
			a.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := a.client.MakeBucket(ctx, a.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			a.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		if a.cfg.PublicRead {
			a.bucketInitErr = a.allowPublicRead(ctx)
		}
	})
	return a.bucketInitErr
}

func (a *Archive) allowPublicRead(ctx context.Context) error {
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, a.cfg.Bucket)
	if err := a.client.SetBucketPolicy(ctx, a.cfg.Bucket, policy); err != nil {
		return fmt.Errorf("s3: set bucket policy: %w", err)
	}
	return nil
}

func (a *Archive) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", a.publicBaseURL, a.cfg.Bucket, strings.TrimLeft(key, "/"))
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.CalendarArchive = (*Archive)(nil)
