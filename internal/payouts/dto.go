package payouts

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type PayoutDTO struct {
	ID                uuid.UUID          `json:"id"`
	StoreID           uuid.UUID          `json:"store_id"`
	AmountCents       int                `json:"amount_cents"`
	FeeCents          int                `json:"fee_cents"`
	NetCents          int                `json:"net_cents"`
	Currency          enums.Currency     `json:"currency"`
	Method            enums.PayoutMethod `json:"method"`
	Status            enums.PayoutStatus `json:"status"`
	ExternalReference *string            `json:"external_reference,omitempty"`
	FailureReason     *string            `json:"failure_reason,omitempty"`
	ProcessingAt      *time.Time         `json:"processing_at,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	FailedAt          *time.Time         `json:"failed_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// NewPayoutDTO omits the destination; account details are only sent to the
// disbursement worker.
func NewPayoutDTO(p *models.Payout) PayoutDTO {
	return PayoutDTO{
		ID:                p.ID,
		StoreID:           p.StoreID,
		AmountCents:       p.AmountCents,
		FeeCents:          p.FeeCents,
		NetCents:          p.NetCents,
		Currency:          p.Currency,
		Method:            p.Method,
		Status:            p.Status,
		ExternalReference: p.ExternalReference,
		FailureReason:     p.FailureReason,
		ProcessingAt:      p.ProcessingAt,
		CompletedAt:       p.CompletedAt,
		FailedAt:          p.FailedAt,
		CreatedAt:         p.CreatedAt,
	}
}
