package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type ReturnRequest struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID      uuid.UUID          `gorm:"column:customer_id;type:uuid;not null"`
	StoreID         uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	Reason          string             `gorm:"column:reason;not null"`
	RejectionReason *string            `gorm:"column:rejection_reason"`
	RefundCents     int                `gorm:"column:refund_cents;not null"`
	Status          enums.ReturnStatus `gorm:"column:status;type:text;not null"`
	TransactionID   *uuid.UUID         `gorm:"column:transaction_id;type:uuid"`
	Items           []ReturnItem       `gorm:"foreignKey:ReturnID"`
	ApprovedAt      *time.Time         `gorm:"column:approved_at"`
	RejectedAt      *time.Time         `gorm:"column:rejected_at"`
	ReceivedAt      *time.Time         `gorm:"column:received_at"`
	RefundedAt      *time.Time         `gorm:"column:refunded_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

type ReturnItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ReturnID       uuid.UUID  `gorm:"column:return_id;type:uuid;not null;index"`
	OrderItemID    uuid.UUID  `gorm:"column:order_item_id;type:uuid;not null"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
