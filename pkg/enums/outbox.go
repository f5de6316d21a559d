package enums

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder  OutboxAggregateType = "order"
	AggregatePayout OutboxAggregateType = "payout"
	AggregateReturn OutboxAggregateType = "return_request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayout,
	AggregateReturn,
}

func (a OutboxAggregateType) IsValid() bool { return oneOf(validAggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType is the routing key consumed by notification and
// disbursement workers.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderStatusChanged  OutboxEventType = "order_status_changed"
	EventOrderCancelled      OutboxEventType = "order_cancelled"
	EventOrderRefundRequired OutboxEventType = "order_refund_required"
	EventOrderPaid           OutboxEventType = "order_paid"
	EventOrderPaymentFailed  OutboxEventType = "order_payment_failed"
	EventPayoutRequested     OutboxEventType = "payout_requested"
	EventPayoutProcessing    OutboxEventType = "payout_processing"
	EventPayoutCompleted     OutboxEventType = "payout_completed"
	EventPayoutFailed        OutboxEventType = "payout_failed"
	EventReturnStatusChanged OutboxEventType = "return_status_changed"
	EventRefundIssued        OutboxEventType = "refund_issued"
	EventPendingReleased     OutboxEventType = "pending_balance_released"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventOrderRefundRequired,
	EventOrderPaid,
	EventOrderPaymentFailed,
	EventPayoutRequested,
	EventPayoutProcessing,
	EventPayoutCompleted,
	EventPayoutFailed,
	EventReturnStatusChanged,
	EventRefundIssued,
	EventPendingReleased,
}

func (e OutboxEventType) IsValid() bool { return oneOf(validOutboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}

// OutboxDLQErrorReason explains why the publisher gave up on a row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validDLQReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

func (r OutboxDLQErrorReason) IsValid() bool { return oneOf(validDLQReasons, r) }
