package checkout

import "errors"

var (
	// ErrUnauthenticated means no identity was supplied; nothing is submitted.
	ErrUnauthenticated = errors.New("checkout requires an authenticated customer")

	// ErrEmptyCart means there is nothing to check out.
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

	// ErrPaymentInitFailed means the payment provider refused to create a
	// hosted session. The cart is left untouched.
	ErrPaymentInitFailed = errors.New("failed to initialize hosted payment session")

	// ErrUploadFailed means the check image could not be stored. The cart is
	// left untouched.
	ErrUploadFailed = errors.New("failed to upload check image")

	// ErrOrderWriteFailed means the order record could not be written. The
	// cart is left untouched.
	ErrOrderWriteFailed = errors.New("failed to write order")
)
