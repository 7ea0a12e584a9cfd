package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/pkg/storage"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewArchive(store)
}

func TestArchive_SaveLoad(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)
	b := Build(fixture())

	require.NoError(t, a.Save(ctx, "user-1", &b))

	loaded, err := a.Load(ctx, "user-1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, *loaded)

	t.Run("resave after selection change", func(t *testing.T) {
		edited := b.WithAllSelected(false)
		require.NoError(t, a.Save(ctx, "user-1", &edited))

		loaded, err := a.Load(ctx, "user-1", b.ID)
		require.NoError(t, err)
		assert.Zero(t, loaded.Summary.Selected.Count)

		list, err := a.List(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestArchive_List(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)
	b := Build(fixture())
	require.NoError(t, a.Save(ctx, "user-1", &b))

	list, err := a.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, "statement.pdf", list[0].Document)
	assert.Positive(t, list[0].Size)

	others, err := a.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestArchive_Missing(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)

	_, err := a.Load(ctx, "user-1", uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, a.Delete(ctx, "user-1", uuid.New()), storage.ErrNotFound)

	b := Build(fixture())
	assert.ErrorIs(t, a.Save(ctx, "", &b), storage.ErrInvalidOwner)
}

func TestArchive_Prune(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)

	for _, user := range []string{"user-1", "user-2"} {
		b := Build(fixture())
		b.ID = uuid.New()
		require.NoError(t, a.Save(ctx, user, &b))
	}

	removed, err := a.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed, "recent batches are kept")

	removed, err = a.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list, err := a.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
