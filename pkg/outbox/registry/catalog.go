package registry

import (
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

type route string

const (
	routeOrders        route = "orders"
	routePayouts       route = "payouts"
	routeReturns       route = "returns"
	routeNotifications route = "notifications"
)

type catalogEntry struct {
	eventType enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	route     route
	factory   func() any
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// catalog is every event the outbox may carry.
var catalog = []catalogEntry{
	{enums.EventOrderCreated, enums.AggregateOrder, routeOrders, payloadOf[payloads.OrderCreatedEvent]()},
	{enums.EventOrderStatusChanged, enums.AggregateOrder, routeOrders, payloadOf[payloads.OrderStatusChangedEvent]()},
	{enums.EventOrderCancelled, enums.AggregateOrder, routeOrders, payloadOf[payloads.OrderCancelledEvent]()},
	{enums.EventOrderPaid, enums.AggregateOrder, routeOrders, payloadOf[payloads.OrderPaidEvent]()},
	{enums.EventOrderPaymentFailed, enums.AggregateOrder, routeOrders, payloadOf[payloads.OrderPaymentFailedEvent]()},
	{enums.EventOrderRefundRequired, enums.AggregateOrder, routeNotifications, payloadOf[payloads.OrderRefundRequiredEvent]()},
	{enums.EventPendingReleased, enums.AggregateOrder, routePayouts, payloadOf[payloads.PendingReleasedEvent]()},

	{enums.EventPayoutRequested, enums.AggregatePayout, routePayouts, payloadOf[payloads.PayoutEvent]()},
	{enums.EventPayoutProcessing, enums.AggregatePayout, routePayouts, payloadOf[payloads.PayoutEvent]()},
	{enums.EventPayoutCompleted, enums.AggregatePayout, routePayouts, payloadOf[payloads.PayoutEvent]()},
	{enums.EventPayoutFailed, enums.AggregatePayout, routePayouts, payloadOf[payloads.PayoutEvent]()},

	{enums.EventReturnStatusChanged, enums.AggregateReturn, routeReturns, payloadOf[payloads.ReturnStatusChangedEvent]()},
	{enums.EventRefundIssued, enums.AggregateReturn, routeReturns, payloadOf[payloads.RefundIssuedEvent]()},
}
