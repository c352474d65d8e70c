package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

func TestStore_LoadSave(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "memory.db")

	store, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)

	_, err = store.Load(ctx, "memory_bank")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	require.NoError(t, store.Save(ctx, "memory_bank", []byte(`{"v":1}`)))
	require.NoError(t, store.Save(ctx, "memory_bank", []byte(`{"v":2}`)))

	got, err := store.Load(ctx, "memory_bank")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
	require.NoError(t, store.Close())

	// Survives reopening.
	reopened, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err = reopened.Load(ctx, "memory_bank")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := sqlite.NewStore("  ")
	require.Error(t, err)
}
