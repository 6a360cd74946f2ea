package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpope-co/portal-session/storage"
)

func TestMemStore_SetGet(t *testing.T) {
	ctx := context.Background()
	ms := storage.NewMemStore()

	require.NoError(t, ms.Set(ctx, storage.KeyCredential, "abc"))

	value, err := ms.Get(ctx, storage.KeyCredential)
	require.NoError(t, err)
	require.Equal(t, "abc", value)
}

func TestMemStore_GetMissing(t *testing.T) {
	ms := storage.NewMemStore()

	_, err := ms.Get(context.Background(), "absent")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemStore_Remove(t *testing.T) {
	ctx := context.Background()
	ms := storage.NewMemStore()

	require.NoError(t, ms.Set(ctx, "k", "v"))
	require.NoError(t, ms.Remove(ctx, "k"))

	_, err := ms.Get(ctx, "k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Removing an absent key is not an error.
	require.NoError(t, ms.Remove(ctx, "k"))
}

func TestMemStore_ClearWipesScope(t *testing.T) {
	ctx := context.Background()
	ms := storage.NewMemStore()

	require.NoError(t, ms.Set(ctx, storage.KeyIdentity, "{}"))
	require.NoError(t, ms.Set(ctx, "menu.cache", "derived"))
	require.NoError(t, ms.Clear(ctx))

	_, err := ms.Get(ctx, storage.KeyIdentity)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = ms.Get(ctx, "menu.cache")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
