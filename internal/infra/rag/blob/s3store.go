// Package blob adapts S3-compatible object storage to the ingestion
// pipeline's BlobStore port.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
)

// Store stores tenant document bytes in an S3-compatible bucket,
// keyed under a per-user prefix so a leaked key never crosses tenants.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewStore constructs the blob storage adapter.
func NewStore(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanEndpoint := sanitizeEndpoint(endpoint)
	useSSL := strings.HasPrefix(strings.ToLower(endpoint), "https")
	client, err := minio.New(cleanEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init blob client: %w", err)
	}
	return &Store{client: client, bucket: bucket, logger: logger.With("component", "rag.blob")}, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// Put uploads a document's bytes under its storage key.
func (s *Store) Put(ctx context.Context, key string, data []byte, mimeType string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType:      mimeType,
		DisableMultipart: len(data) < 5*1024*1024,
	})
	return err
}

// Get fetches an object for streaming extraction.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, statErr := obj.Stat(); statErr != nil {
		return nil, statErr
	}
	return obj, nil
}

// Delete removes an object, used when a document is deleted or an
// ingestion retry replaces a prior upload.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// PresignedPutURL mints a direct-to-blob upload URL so the Gateway can
// hand the browser a one-time writable link instead of proxying bytes
// through itself.
func (s *Store) PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expiry)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Bucket reports the bucket objects are stored under, used by the
// Gateway's tus-init response.
func (s *Store) Bucket() string {
	return s.bucket
}

// Endpoint reports the client's configured host, used by the
// Gateway's tus-init response.
func (s *Store) Endpoint() string {
	return s.client.EndpointURL().Host
}

var _ rag.BlobStore = (*Store)(nil)

func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if strings.Contains(raw, "/") {
		parts := strings.Split(raw, "/")
		raw = parts[0]
	}
	return raw
}
