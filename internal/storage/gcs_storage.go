package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsChunkSize = 256 * 1024

// GCSStorage writes objects to a Google Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

func NewGCSStorage(ctx context.Context, bucket, credentialsFile string) (*GCSStorage, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return newGCSStorage(ctx, bucket, opts...)
}

func newGCSStorage(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}

	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Put(ctx context.Context, key, contentType string, r io.Reader, size int64, onProgress func(int64)) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obj := s.client.Bucket(s.bucket).Object(key).If(gcs.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.ChunkSize = gcsChunkSize
	if onProgress != nil {
		w.ProgressFunc = onProgress
	}

	if _, err := io.Copy(w, r); err != nil {
		// Cancelling before Close aborts the resumable session.
		cancel()
		w.Close()
		return "", fmt.Errorf("writing object %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing object %s: %w", key, err)
	}

	return publicObjectURL(s.bucket, key), nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func publicObjectURL(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Join(parts, "/"))
}
