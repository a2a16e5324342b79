package storage

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	backend, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "local", backend.Type())

	blob := []byte("opaque ciphertext bytes")
	path, err := backend.Save(ctx, "share-1", bytes.NewReader(blob))
	require.NoError(t, err)
	assert.Equal(t, backend.PathFor("share-1"), path)
	assert.True(t, backend.Exists(ctx, path))

	rc, err := backend.Open(ctx, path)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, blob, got)

	require.NoError(t, backend.Delete(ctx, path))
	assert.False(t, backend.Exists(ctx, path))

	_, err = backend.Open(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again must not fail.
	assert.NoError(t, backend.Delete(ctx, path))
}

func TestLocal_List(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := NewLocal(dir)
	require.NoError(t, err)

	_, err = backend.Save(ctx, "a", bytes.NewReader([]byte("1")))
	require.NoError(t, err)
	_, err = backend.Save(ctx, "b", bytes.NewReader([]byte("2")))
	require.NoError(t, err)

	names, err := backend.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
	assert.Equal(t, filepath.Join(dir, "a"), backend.PathFor("a"))
}

func TestLocal_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	backend, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = backend.Save(ctx, "id", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	path, err := backend.Save(ctx, "id", bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	rc, err := backend.Open(ctx, path)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}
