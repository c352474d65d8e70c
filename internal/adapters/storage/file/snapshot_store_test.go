package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/file"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

func TestStore_LoadSave(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := file.NewStore(dir)
	require.NoError(t, err)

	_, err = store.Load(ctx, "memory_bank")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	require.NoError(t, store.Save(ctx, "memory_bank", []byte(`{"a":1}`)))
	require.NoError(t, store.Save(ctx, "memory_bank", []byte(`{"a":2}`)))

	got, err := store.Load(ctx, "memory_bank")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(got))

	// Only the final document remains; temp files are renamed away.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "memory_bank.json", entries[0].Name())
}

func TestStore_NameCannotEscapeDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := file.NewStore(filepath.Join(dir, "snapshots"))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "../outside", []byte(`{}`)))

	_, err = os.Stat(filepath.Join(dir, "snapshots", "outside.json"))
	assert.NoError(t, err)
}
