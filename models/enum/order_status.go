package enum

// OrderStatus is the lifecycle state of a submitted order.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"            // created, awaiting payment or check review
	OrderStatusProcessing        OrderStatus = "processing"         // payment confirmed, being fulfilled
	OrderStatusCompleted         OrderStatus = "completed"          // shipped or delivered
	OrderStatusCancelled         OrderStatus = "cancelled"          // cancelled before fulfilment
	OrderStatusRefunded          OrderStatus = "refunded"           // fully refunded
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded" // partially refunded
	OrderStatusPaid              OrderStatus = "paid"               // payment captured
	OrderStatusFailed            OrderStatus = "failed"             // payment failed
	OrderStatusDispute           OrderStatus = "dispute"            // charge disputed
)

func (s OrderStatus) String() string {
	return string(s)
}
