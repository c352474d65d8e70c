package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()

	_, err := store.Load(ctx, "bank")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	data := []byte(`{"x":1}`)
	require.NoError(t, store.Save(ctx, "bank", data))
	data[2] = 'y'

	got, err := store.Load(ctx, "bank")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(got))
}
