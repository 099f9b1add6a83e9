package corpus

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Source opens the raw CSV bytes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// FileSource reads the corpus from the local filesystem.
type FileSource struct {
	Path string
}

// Open implements Source.
func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// Name implements Source.
func (s FileSource) Name() string { return s.Path }

// ObjectSource reads the corpus from an S3-compatible bucket.
type ObjectSource struct {
	client *minio.Client
	bucket string
	key    string
}

// NewObjectSource builds a minio client for endpoint; the scheme selects TLS.
func NewObjectSource(endpoint, accessKey, secretKey, region, bucket, key string) (*ObjectSource, error) {
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}
	return &ObjectSource{client: client, bucket: bucket, key: key}, nil
}

// Open implements Source.
func (s *ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key before decoding starts.
	if _, statErr := obj.Stat(); statErr != nil {
		obj.Close()
		return nil, statErr
	}
	return obj, nil
}

// Name implements Source.
func (s *ObjectSource) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}
