package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofalre.io/storefront/models"
)

func TestLineItemsFromCart(t *testing.T) {
	items := models.Cart{
		{ID: 1, Name: "Rose Water", Price: 19.99, Image: "https://cdn.example.com/rose.jpg", Quantity: 2},
		{ID: 2, Name: "Dates", Price: 5.00, Image: "dates.jpg", Quantity: 1},
	}

	lines := LineItemsFromCart(items)
	require.Len(t, lines, 2)

	assert.Equal(t, "Rose Water", lines[0].Name)
	assert.Equal(t, int64(1999), lines[0].UnitAmount)
	assert.Equal(t, uint64(2), lines[0].Quantity)

	assert.Equal(t, int64(500), lines[1].UnitAmount)
}

func TestLineItemsFromCartRoundsFloatPrices(t *testing.T) {
	// Binary float representation must not leak into minor units.
	items := models.Cart{{ID: 1, Name: "Saffron", Price: 0.29, Quantity: 1}}

	lines := LineItemsFromCart(items)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(29), lines[0].UnitAmount)
}
