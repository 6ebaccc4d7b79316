package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofalre.io/storefront/models"
)

func TestMemorySnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore()

	items := models.Cart{
		{ID: 1, Name: "Rose Water", Price: 19.99, Quantity: 2},
		{ID: 2, Name: "Dates", Price: 5.00, Quantity: 1},
	}

	require.NoError(t, store.Save(ctx, "cust-1", items))

	loaded, err := store.Load(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, items, loaded)
}

func TestMemorySnapshotStoreMissingCustomer(t *testing.T) {
	store := NewMemorySnapshotStore()

	_, err := store.Load(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestMemorySnapshotStoreNilCartSavesEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore()

	require.NoError(t, store.Save(ctx, "cust-1", nil))

	loaded, err := store.Load(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
