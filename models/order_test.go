package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gofalre.io/storefront/models/enum"
)

func TestOrderValidate(t *testing.T) {
	valid := Order{
		UserID:      "u-1",
		PaymentType: enum.PaymentTypeCheck,
		Total:       20.00,
		Items:       []OrderItem{{ProductID: 1, Name: "Dates", UnitPrice: 10, Quantity: 2, Subtotal: 20}},
	}
	assert.NoError(t, valid.Validate())

	noUser := valid
	noUser.UserID = ""
	assert.Error(t, noUser.Validate())

	badPayment := valid
	badPayment.PaymentType = "crypto"
	assert.Error(t, badPayment.Validate())

	noItems := valid
	noItems.Items = nil
	assert.Error(t, noItems.Validate())

	negative := valid
	negative.Total = -1
	assert.Error(t, negative.Validate())
}

func TestOrderAllowChangeStatus(t *testing.T) {
	tests := []struct {
		from    enum.OrderStatus
		to      enum.OrderStatus
		allowed bool
	}{
		{enum.OrderStatusPending, enum.OrderStatusPaid, true},
		{enum.OrderStatusPending, enum.OrderStatusFailed, true},
		{enum.OrderStatusPaid, enum.OrderStatusRefunded, true},
		{enum.OrderStatusPaid, enum.OrderStatusPartiallyRefunded, true},
		{enum.OrderStatusCompleted, enum.OrderStatusPending, false},
		{enum.OrderStatusRefunded, enum.OrderStatusPaid, false},
		{enum.OrderStatusPaid, enum.OrderStatusPending, false},
	}

	for _, tt := range tests {
		o := Order{Status: tt.from}
		assert.Equal(t, tt.allowed, o.AllowChangeStatus(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderCanCancel(t *testing.T) {
	assert.True(t, (&Order{Status: enum.OrderStatusPending}).CanCancel())
	assert.True(t, (&Order{Status: enum.OrderStatusProcessing}).CanCancel())
	assert.False(t, (&Order{Status: enum.OrderStatusCompleted}).CanCancel())
	assert.False(t, (&Order{Status: enum.OrderStatusRefunded}).CanCancel())
}
