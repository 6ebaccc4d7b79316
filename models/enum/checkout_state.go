package enum

// CheckoutState 表示單次結帳流程的狀態
type CheckoutState string

const (
	CheckoutStateIdle            CheckoutState = "idle"
	CheckoutStateValidating      CheckoutState = "validating"
	CheckoutStateCardRedirecting CheckoutState = "card_redirecting"
	CheckoutStateWritingOrder    CheckoutState = "writing_order"
	CheckoutStateSubmitted       CheckoutState = "submitted"
	CheckoutStateFailed          CheckoutState = "failed"
)

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateSubmitted || s == CheckoutStateFailed
}

func (s CheckoutState) String() string {
	return string(s)
}
