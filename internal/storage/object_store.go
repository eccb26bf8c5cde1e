// Package storage wraps the S3-compatible object store used for media files.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"inkwell/internal/config"
)

// ObjectStore uploads media blobs to an S3-compatible bucket. Database
// rows keep only the object path; the bytes live here.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore connects to the configured object store endpoint.
func NewObjectStore(cfg *config.Config) (*ObjectStore, error) {
	endpoint := cfg.StorageEndpoint
	useSSL := cfg.StorageUseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	return &ObjectStore{
		client: client,
		bucket: cfg.StorageBucket,
	}, nil
}

// EnsureBucket creates the media bucket if it does not exist yet.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload streams an object into the bucket and returns its stored path.
func (s *ObjectStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return fmt.Sprintf("%s/%s", s.bucket, objectName), nil
}

// Remove deletes an object, best-effort cleanup for media deletion.
func (s *ObjectStore) Remove(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
