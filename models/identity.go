package models

// Identity is the resolved authenticated customer a checkout runs under.
type Identity struct {
	ID           string `json:"id"`
	Email        string `json:"email,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
}
