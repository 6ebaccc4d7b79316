package models

import (
	"time"

	"github.com/stripe/stripe-go/v79"
)

// User is a registered customer account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	BusinessName string    `json:"business_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity projects the account into the checkout identity.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:           u.ID,
		Email:        u.Email,
		BusinessName: u.BusinessName,
	}
}

// Event records a received payment-provider event so webhook deliveries are
// processed at most once.
type Event struct {
	ID        string           `json:"id"`
	Type      stripe.EventType `json:"type"`
	Processed bool             `json:"processed"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
