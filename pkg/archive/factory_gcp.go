//go:build gcp

package archive

import (
	"context"
	"fmt"
	"os"
)

func newGCSArchiverFromEnv(ctx context.Context) (Archiver, error) {
	bucket := os.Getenv("ARCHIVE_GCS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("ARCHIVE_GCS_BUCKET is required for GCS archiving")
	}

	return NewGCSArchiver(ctx, GCSArchiverConfig{
		Bucket: bucket,
		Prefix: os.Getenv("ARCHIVE_GCS_PREFIX"),
	})
}
