package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Transaction is an append-only ledger entry. Only Status, CompletedAt and
// UpdatedAt change after insert. Sequence orders a store's entries; the
// unique index rejects two writers appending the same position.
type Transaction struct {
	ID                 uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	StoreID            uuid.UUID                  `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_transactions_store_sequence"`
	Sequence           int64                      `gorm:"column:sequence;not null;uniqueIndex:idx_transactions_store_sequence"`
	OrderID            *uuid.UUID                 `gorm:"column:order_id;type:uuid;index"`
	PayoutID           *uuid.UUID                 `gorm:"column:payout_id;type:uuid"`
	ReturnID           *uuid.UUID                 `gorm:"column:return_id;type:uuid"`
	ReversesID         *uuid.UUID                 `gorm:"column:reverses_id;type:uuid"`
	Type               enums.TransactionType      `gorm:"column:type;type:text;not null"`
	Direction          enums.TransactionDirection `gorm:"column:direction;type:text;not null"`
	BalanceField       enums.BalanceField         `gorm:"column:balance_field;type:text;not null"`
	AmountCents        int                        `gorm:"column:amount_cents;not null"`
	Currency           enums.Currency             `gorm:"column:currency;type:text;not null"`
	BalanceBeforeCents int                        `gorm:"column:balance_before_cents;not null"`
	BalanceAfterCents  int                        `gorm:"column:balance_after_cents;not null"`
	Status             enums.TransactionStatus    `gorm:"column:status;type:text;not null"`
	Description        string                     `gorm:"column:description"`
	Metadata           json.RawMessage            `gorm:"column:metadata;type:jsonb"`
	CompletedAt        *time.Time                 `gorm:"column:completed_at"`
	CreatedAt          time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
