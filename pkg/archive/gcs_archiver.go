//go:build gcp

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSArchiver implements Archiver on Google Cloud Storage.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSArchiverConfig holds configuration for GCSArchiver.
type GCSArchiverConfig struct {
	Bucket string
	Prefix string // Optional key prefix
}

// NewGCSArchiver creates a GCS-backed snapshot archiver. The client
// authenticates via Application Default Credentials.
func NewGCSArchiver(ctx context.Context, cfg GCSArchiverConfig) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSArchiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (a *GCSArchiver) Put(ctx context.Context, key string, data []byte) error {
	obj := a.client.Bucket(a.bucket).Object(a.prefix + key)
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write failed for %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close failed for %s: %w", key, err)
	}
	return nil
}

func (a *GCSArchiver) Get(ctx context.Context, key string) ([]byte, error) {
	obj := a.client.Bucket(a.bucket).Object(a.prefix + key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("archived snapshot not found: %s", key)
		}
		return nil, fmt.Errorf("gcs get failed for %s: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gcs read failed for %s: %w", key, err)
	}
	return data, nil
}

// Close closes the GCS client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}
