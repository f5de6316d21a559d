package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Order is one purchase from one customer against one store. It is never
// deleted; cancellation is a status.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        int64               `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID         uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	StoreID            uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	SubtotalCents      int                 `gorm:"column:subtotal_cents;not null"`
	ShippingCents      int                 `gorm:"column:shipping_cents;not null;default:0"`
	DiscountCents      int                 `gorm:"column:discount_cents;not null;default:0"`
	TotalCents         int                 `gorm:"column:total_cents;not null"`
	CommissionCents    int                 `gorm:"column:commission_cents;not null;default:0"`
	Currency           enums.Currency      `gorm:"column:currency;type:text;not null"`
	Status             enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	CouponCode         *string             `gorm:"column:coupon_code"`
	ShippingAddress    types.Address       `gorm:"column:shipping_address;type:jsonb;not null"`
	Note               *string             `gorm:"column:note"`
	PaymentReference   *string             `gorm:"column:payment_reference"`
	Carrier            *string             `gorm:"column:carrier"`
	TrackingNumber     *string             `gorm:"column:tracking_number"`
	TrackingURL        *string             `gorm:"column:tracking_url"`
	CancellationReason *string             `gorm:"column:cancellation_reason"`
	PaidAt             *time.Time          `gorm:"column:paid_at"`
	ShippedAt          *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time          `gorm:"column:delivered_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID"`
	Events             []OrderEvent        `gorm:"foreignKey:OrderID"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots the catalog at order time and is immutable.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Title          string     `gorm:"column:title;not null"`
	SKU            string     `gorm:"column:sku"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	TotalCents     int        `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// OrderEvent is an insert-only timeline entry.
type OrderEvent struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Type        enums.OrderEventType `gorm:"column:type;type:text;not null"`
	Description string               `gorm:"column:description;not null"`
	ActorKind   enums.ActorKind      `gorm:"column:actor_kind;type:text;not null"`
	ActorID     *uuid.UUID           `gorm:"column:actor_id;type:uuid"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
