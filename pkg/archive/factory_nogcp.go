//go:build !gcp

package archive

import (
	"context"
	"fmt"
)

func newGCSArchiverFromEnv(ctx context.Context) (Archiver, error) {
	return nil, fmt.Errorf("GCS archiving is not enabled in this build (use -tags gcp)")
}
