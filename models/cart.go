package models

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

// CartItem 代表購物車中的單個商品項目
type CartItem struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity uint64  `json:"quantity"`
}

// Cart is the ordered sequence of items a customer intends to purchase.
// Insertion order is display order.
type Cart []CartItem

// UnmarshalJSON decodes a cart item defensively. Persisted snapshots are
// untyped JSON written by earlier clients: prices may arrive as strings,
// quantities as floats. Unparsable prices decode as 0, quantities are
// floored at 1.
func (ci *CartItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       json.Number     `json:"id"`
		Name     string          `json:"name"`
		Price    json.RawMessage `json:"price"`
		Image    string          `json:"image"`
		Quantity json.Number     `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, _ := strconv.ParseUint(raw.ID.String(), 10, 64)
	ci.ID = id
	ci.Name = raw.Name
	ci.Image = raw.Image
	ci.Price = coercePrice(raw.Price)

	qty, err := raw.Quantity.Float64()
	if err != nil || qty < 1 {
		ci.Quantity = 1
	} else {
		ci.Quantity = uint64(qty)
	}

	return nil
}

// coercePrice accepts a JSON number or a numeric string, anything else is 0.
func coercePrice(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	}

	return 0
}

// Validate rejects malformed items at the store boundary.
func (ci *CartItem) Validate() error {
	if ci.ID == 0 {
		return errors.New("cart item requires a product id")
	}
	if ci.Name == "" {
		return errors.New("cart item requires a name")
	}
	if ci.Price < 0 {
		return errors.New("cart item price cannot be negative")
	}
	return nil
}

// Normalize floors the quantity at 1.
func (ci *CartItem) Normalize() {
	if ci.Quantity < 1 {
		ci.Quantity = 1
	}
}

// Subtotal returns price * quantity as an exact decimal.
func (ci *CartItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(ci.Price).Mul(decimal.NewFromUint64(ci.Quantity))
}

// TotalQuantity sums item quantities, used for the navigation badge.
func (c Cart) TotalQuantity() uint64 {
	var total uint64
	for i := range c {
		total += c[i].Quantity
	}
	return total
}

// TotalPrice sums price * quantity over the cart, rounded to two decimal
// places.
func (c Cart) TotalPrice() float64 {
	total := decimal.Zero
	for i := range c {
		total = total.Add(c[i].Subtotal())
	}
	return total.Round(2).InexactFloat64()
}

// Clone returns an independent copy so callers cannot mutate store state.
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}
