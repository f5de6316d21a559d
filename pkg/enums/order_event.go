package enums

// OrderEventType labels an entry on the order timeline.
type OrderEventType string

const (
	OrderEventCreated          OrderEventType = "order_created"
	OrderEventStatusChanged    OrderEventType = "status_changed"
	OrderEventPaymentConfirmed OrderEventType = "payment_confirmed"
	OrderEventPaymentFailed    OrderEventType = "payment_failed"
	OrderEventCancelled        OrderEventType = "order_cancelled"
	OrderEventReturnRequested  OrderEventType = "return_requested"
	OrderEventRefunded         OrderEventType = "order_refunded"
)

var validOrderEventTypes = []OrderEventType{
	OrderEventCreated,
	OrderEventStatusChanged,
	OrderEventPaymentConfirmed,
	OrderEventPaymentFailed,
	OrderEventCancelled,
	OrderEventReturnRequested,
	OrderEventRefunded,
}

func (t OrderEventType) IsValid() bool { return oneOf(validOrderEventTypes, t) }
