package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartTotalPrice(t *testing.T) {
	c := Cart{
		{ID: 1, Name: "Rose Water", Price: 19.99, Quantity: 2},
		{ID: 2, Name: "Dates", Price: 5.00, Quantity: 1},
	}

	assert.Equal(t, 44.98, c.TotalPrice())
}

func TestCartTotalPriceEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Cart{}.TotalPrice())
}

func TestCartTotalQuantity(t *testing.T) {
	c := Cart{
		{ID: 1, Quantity: 2},
		{ID: 2, Quantity: 3},
	}

	assert.Equal(t, uint64(5), c.TotalQuantity())
}

func TestCartItemUnmarshalCoercesStringPrice(t *testing.T) {
	var item CartItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"name":"Tahini","price":"19.99","image":"tahini.jpg","quantity":2}`), &item))

	assert.Equal(t, uint64(7), item.ID)
	assert.Equal(t, 19.99, item.Price)
	assert.Equal(t, uint64(2), item.Quantity)
}

func TestCartItemUnmarshalUnparsablePriceIsZero(t *testing.T) {
	var item CartItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"name":"Tahini","price":"n/a","quantity":1}`), &item))
	assert.Equal(t, 0.0, item.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"id":8,"name":"Halva","price":{"amount":3},"quantity":1}`), &item))
	assert.Equal(t, 0.0, item.Price)
}

func TestCartItemUnmarshalFloorsQuantity(t *testing.T) {
	var item CartItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"name":"Tahini","price":1,"quantity":0}`), &item))
	assert.Equal(t, uint64(1), item.Quantity)

	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"name":"Tahini","price":1}`), &item))
	assert.Equal(t, uint64(1), item.Quantity)
}

func TestCartItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    CartItem
		wantErr bool
	}{
		{"valid", CartItem{ID: 1, Name: "Dates", Price: 5, Quantity: 1}, false},
		{"missing id", CartItem{Name: "Dates", Price: 5}, true},
		{"missing name", CartItem{ID: 1, Price: 5}, true},
		{"negative price", CartItem{ID: 1, Name: "Dates", Price: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCartRoundTrip(t *testing.T) {
	original := Cart{
		{ID: 1, Name: "Rose Water", Price: 19.99, Image: "rose.jpg", Quantity: 2},
		{ID: 2, Name: "Dates", Price: 5.00, Image: "dates.jpg", Quantity: 1},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Cart
	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.Equal(t, original, restored)
}
