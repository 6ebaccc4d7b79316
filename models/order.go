package models

import (
	"errors"
	"fmt"
	"time"

	"gofalre.io/storefront/models/enum"
)

// Order 代表訂單
type Order struct {
	ID              uint64           `json:"id"`
	UserID          string           `json:"user_id"`
	Status          enum.OrderStatus `json:"status"`
	Total           float64          `json:"total"`
	PaymentType     enum.PaymentType `json:"payment_type"`
	CheckImageURL   string           `json:"check_image_url,omitempty"`
	PaymentIntentID string           `json:"payment_intent_id,omitempty"`
	Items           []OrderItem      `json:"items"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// OrderItem 代表訂單中的單個商品項目，結帳時購物車的快照
type OrderItem struct {
	ID        uint64  `json:"id"`
	OrderID   uint64  `json:"order_id"`
	ProductID uint64  `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  uint64  `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

func (o *Order) Validate() error {
	if o.UserID == "" {
		return errors.New("order requires a user id")
	}
	if !o.PaymentType.Valid() {
		return fmt.Errorf("unknown payment type: %s", o.PaymentType)
	}
	if o.Total < 0 {
		return errors.New("order total cannot be negative")
	}
	if len(o.Items) == 0 {
		return errors.New("order requires at least one item")
	}
	return nil
}

// allowedTransitions lists the valid next statuses for each order status.
var allowedTransitions = map[enum.OrderStatus][]enum.OrderStatus{
	enum.OrderStatusPending:    {enum.OrderStatusPaid, enum.OrderStatusProcessing, enum.OrderStatusFailed, enum.OrderStatusCancelled},
	enum.OrderStatusPaid:       {enum.OrderStatusProcessing, enum.OrderStatusCompleted, enum.OrderStatusRefunded, enum.OrderStatusPartiallyRefunded, enum.OrderStatusDispute, enum.OrderStatusCancelled},
	enum.OrderStatusProcessing: {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
	enum.OrderStatusFailed:     {enum.OrderStatusPending, enum.OrderStatusCancelled},
	enum.OrderStatusDispute:    {enum.OrderStatusRefunded, enum.OrderStatusPartiallyRefunded, enum.OrderStatusCancelled},
	// A partial refund can still grow into a full one.
	enum.OrderStatusPartiallyRefunded: {enum.OrderStatusRefunded, enum.OrderStatusDispute},
}

// AllowChangeStatus reports whether the order may move to newStatus.
func (o *Order) AllowChangeStatus(newStatus enum.OrderStatus) bool {
	for _, s := range allowedTransitions[o.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// CanCancel reports whether the order is still cancellable.
func (o *Order) CanCancel() bool {
	return o.AllowChangeStatus(enum.OrderStatusCancelled)
}
