package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// OrderCreatedEvent announces a new pending order to the vendor.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID      `json:"order_id"`
	OrderNumber int64          `json:"order_number"`
	StoreID     uuid.UUID      `json:"store_id"`
	CustomerID  uuid.UUID      `json:"customer_id"`
	TotalCents  int            `json:"total_cents"`
	Currency    enums.Currency `json:"currency"`
	CouponCode  string         `json:"coupon_code,omitempty"`
}

// OrderStatusChangedEvent is emitted by every fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	StoreID        uuid.UUID         `json:"store_id"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
	Carrier        string            `json:"carrier,omitempty"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	TrackingURL    string            `json:"tracking_url,omitempty"`
}

// OrderCancelledEvent is emitted when a customer, vendor or payment failure
// cancels an order.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	StoreID        uuid.UUID       `json:"store_id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	CancelledBy    enums.ActorKind `json:"cancelled_by"`
	Reason         string          `json:"reason,omitempty"`
	CancelledAt    time.Time       `json:"cancelled_at"`
	RefundRequired bool            `json:"refund_required"`
}

// OrderRefundRequiredEvent asks the payment operator to return a captured
// payment for an order cancelled after settlement.
type OrderRefundRequiredEvent struct {
	OrderID          uuid.UUID      `json:"order_id"`
	StoreID          uuid.UUID      `json:"store_id"`
	AmountCents      int            `json:"amount_cents"`
	Currency         enums.Currency `json:"currency"`
	PaymentReference string         `json:"payment_reference,omitempty"`
}

// OrderPaidEvent reports a settled payment and its commission split.
type OrderPaidEvent struct {
	OrderID          uuid.UUID      `json:"order_id"`
	StoreID          uuid.UUID      `json:"store_id"`
	AmountCents      int            `json:"amount_cents"`
	CommissionCents  int            `json:"commission_cents"`
	NetCents         int            `json:"net_cents"`
	Currency         enums.Currency `json:"currency"`
	PaymentReference string         `json:"payment_reference"`
	PaidAt           time.Time      `json:"paid_at"`
}

type OrderPaymentFailedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	StoreID uuid.UUID `json:"store_id"`
	Reason  string    `json:"reason,omitempty"`
}

// PayoutEvent carries the payout snapshot for every payout lifecycle event.
type PayoutEvent struct {
	PayoutID          uuid.UUID          `json:"payout_id"`
	StoreID           uuid.UUID          `json:"store_id"`
	Status            enums.PayoutStatus `json:"status"`
	AmountCents       int                `json:"amount_cents"`
	FeeCents          int                `json:"fee_cents"`
	NetCents          int                `json:"net_cents"`
	Currency          enums.Currency     `json:"currency"`
	Method            string             `json:"method"`
	Destination       map[string]string  `json:"destination,omitempty"`
	ExternalReference string             `json:"external_reference,omitempty"`
	FailureReason     string             `json:"failure_reason,omitempty"`
}

type ReturnStatusChangedEvent struct {
	ReturnID   uuid.UUID          `json:"return_id"`
	OrderID    uuid.UUID          `json:"order_id"`
	StoreID    uuid.UUID          `json:"store_id"`
	CustomerID uuid.UUID          `json:"customer_id"`
	From       enums.ReturnStatus `json:"from,omitempty"`
	To         enums.ReturnStatus `json:"to"`
	Reason     string             `json:"reason,omitempty"`
}

type RefundIssuedEvent struct {
	ReturnID    uuid.UUID      `json:"return_id"`
	OrderID     uuid.UUID      `json:"order_id"`
	StoreID     uuid.UUID      `json:"store_id"`
	CustomerID  uuid.UUID      `json:"customer_id"`
	AmountCents int            `json:"amount_cents"`
	Currency    enums.Currency `json:"currency"`
	FullRefund  bool           `json:"full_refund"`
}

// PendingReleasedEvent reports an order's net proceeds moving from the
// pending balance into the spendable balance.
type PendingReleasedEvent struct {
	StoreID     uuid.UUID      `json:"store_id"`
	OrderID     uuid.UUID      `json:"order_id"`
	AmountCents int            `json:"amount_cents"`
	Currency    enums.Currency `json:"currency"`
}
