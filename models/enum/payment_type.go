package enum

// PaymentType 表示結帳時選擇的付款方式
type PaymentType string

const (
	PaymentTypeCard  PaymentType = "card"  // Stripe hosted checkout
	PaymentTypeCheck PaymentType = "check" // check or wire transfer, reviewed manually
)

func (p PaymentType) Valid() bool {
	return p == PaymentTypeCard || p == PaymentTypeCheck
}
