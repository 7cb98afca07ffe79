package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSArchiver_PutGet(t *testing.T) {
	a, err := NewFSArchiver(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := IndexKey("2026-05-10")
	require.NoError(t, a.Put(ctx, key, []byte(`{"value":41.2}`)))

	got, err := a.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":41.2}`, string(got))

	// Same key overwrites, matching the store's daily upsert.
	require.NoError(t, a.Put(ctx, key, []byte(`{"value":43.0}`)))
	got, err = a.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":43.0}`, string(got))
}

func TestFSArchiver_MissingKey(t *testing.T) {
	a, err := NewFSArchiver(t.TempDir())
	require.NoError(t, err)

	_, err = a.Get(context.Background(), IndexKey("1999-01-01"))
	assert.ErrorContains(t, err, "not found")
}

func TestFSArchiver_RejectsTraversal(t *testing.T) {
	a, err := NewFSArchiver(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, a.Put(ctx, "../escape.json", []byte("{}")))
	assert.Error(t, a.Put(ctx, "/abs.json", []byte("{}")))
	assert.Error(t, a.Put(ctx, "", []byte("{}")))
}

func TestNewArchiverFromEnv(t *testing.T) {
	t.Run("defaults to filesystem", func(t *testing.T) {
		t.Setenv("ARCHIVE_STORAGE_TYPE", "")
		t.Setenv("DATA_DIR", t.TempDir())

		a, err := NewArchiverFromEnv(context.Background())
		require.NoError(t, err)
		assert.IsType(t, &FSArchiver{}, a)
	})

	t.Run("s3 requires bucket", func(t *testing.T) {
		t.Setenv("ARCHIVE_STORAGE_TYPE", "s3")
		t.Setenv("ARCHIVE_S3_BUCKET", "")

		_, err := NewArchiverFromEnv(context.Background())
		assert.ErrorContains(t, err, "ARCHIVE_S3_BUCKET")
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("ARCHIVE_STORAGE_TYPE", "tape")

		_, err := NewArchiverFromEnv(context.Background())
		assert.ErrorContains(t, err, "unsupported archive storage type")
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "index/2026-05-10.json", IndexKey("2026-05-10"))
	assert.Equal(t, "credibility/2026-05-10/TechWire.json", CredibilityKey("TechWire", "2026-05-10"))
}
