package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// BackendType selects the archive storage backend.
type BackendType string

const (
	BackendFS  BackendType = "fs"
	BackendS3  BackendType = "s3"
	BackendGCS BackendType = "gcs"
)

// NewArchiverFromEnv creates an archiver based on environment variables.
//
// Environment variables:
//   - ARCHIVE_STORAGE_TYPE: "fs" (default), "s3", or "gcs"
//   - DATA_DIR: Base directory for filesystem archive (default: "data")
//
// For S3:
//   - AWS_REGION or ARCHIVE_S3_REGION
//   - ARCHIVE_S3_BUCKET (required)
//   - ARCHIVE_S3_ENDPOINT (optional, for MinIO/LocalStack)
//   - ARCHIVE_S3_PREFIX (optional)
//
// For GCS:
//   - ARCHIVE_GCS_BUCKET (required)
//   - ARCHIVE_GCS_PREFIX (optional)
func NewArchiverFromEnv(ctx context.Context) (Archiver, error) {
	backend := BackendType(os.Getenv("ARCHIVE_STORAGE_TYPE"))
	if backend == "" {
		backend = BackendFS
	}

	switch backend {
	case BackendFS:
		return newFSArchiverFromEnv()
	case BackendS3:
		return newS3ArchiverFromEnv(ctx)
	case BackendGCS:
		return newGCSArchiverFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unsupported archive storage type: %s", backend)
	}
}

func newFSArchiverFromEnv() (Archiver, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return NewFSArchiver(filepath.Join(dataDir, "snapshots"))
}

func newS3ArchiverFromEnv(ctx context.Context) (Archiver, error) {
	bucket := os.Getenv("ARCHIVE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("ARCHIVE_S3_BUCKET is required for S3 archiving")
	}

	region := os.Getenv("ARCHIVE_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	return NewS3Archiver(ctx, S3ArchiverConfig{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("ARCHIVE_S3_ENDPOINT"),
		Prefix:   os.Getenv("ARCHIVE_S3_PREFIX"),
	})
}
