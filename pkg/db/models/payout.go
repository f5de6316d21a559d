package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Payout is created in the same transaction as its debit entry.
type Payout struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	StoreID               uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	AmountCents           int                `gorm:"column:amount_cents;not null"`
	FeeCents              int                `gorm:"column:fee_cents;not null"`
	NetCents              int                `gorm:"column:net_cents;not null"`
	Currency              enums.Currency     `gorm:"column:currency;type:text;not null"`
	Method                enums.PayoutMethod `gorm:"column:method;type:text;not null"`
	Destination           types.StringMap    `gorm:"column:destination;type:jsonb"`
	Status                enums.PayoutStatus `gorm:"column:status;type:text;not null"`
	TransactionID         uuid.UUID          `gorm:"column:transaction_id;type:uuid;not null"`
	ReversalTransactionID *uuid.UUID         `gorm:"column:reversal_transaction_id;type:uuid"`
	ExternalReference     *string            `gorm:"column:external_reference"`
	FailureReason         *string            `gorm:"column:failure_reason"`
	ProcessingAt          *time.Time         `gorm:"column:processing_at"`
	CompletedAt           *time.Time         `gorm:"column:completed_at"`
	FailedAt              *time.Time         `gorm:"column:failed_at"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
