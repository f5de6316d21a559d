package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Store is the vendor tenant. Balance columns are a projection of the ledger
// and are only written by the ledger service.
type Store struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID             uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index"`
	Name                string          `gorm:"column:name;not null"`
	Plan                enums.StorePlan `gorm:"column:plan;type:text;not null;default:'free'"`
	IsActive            bool            `gorm:"column:is_active;not null"`
	Currency            enums.Currency  `gorm:"column:currency;type:text;not null"`
	BalanceCents        int             `gorm:"column:balance_cents;not null;default:0"`
	PendingBalanceCents int             `gorm:"column:pending_balance_cents;not null;default:0"`
	TotalOrders         int             `gorm:"column:total_orders;not null;default:0"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Balance returns the projected value of the given field.
func (s Store) Balance(field enums.BalanceField) int {
	if field == enums.BalanceFieldPending {
		return s.PendingBalanceCents
	}
	return s.BalanceCents
}
