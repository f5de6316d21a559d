package stores

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// BalanceDTO is the vendor's view of their projected balances.
type BalanceDTO struct {
	StoreID             uuid.UUID `json:"store_id"`
	Currency            string    `json:"currency"`
	BalanceCents        int       `json:"balance_cents"`
	PendingBalanceCents int       `json:"pending_balance_cents"`
	TotalOrders         int       `json:"total_orders"`
	CommissionRateBps   int       `json:"commission_rate_bps"`
}

func NewBalanceDTO(store *models.Store) BalanceDTO {
	return BalanceDTO{
		StoreID:             store.ID,
		Currency:            store.Currency.String(),
		BalanceCents:        store.BalanceCents,
		PendingBalanceCents: store.PendingBalanceCents,
		TotalOrders:         store.TotalOrders,
		CommissionRateBps:   store.Plan.CommissionRateBps(),
	}
}
