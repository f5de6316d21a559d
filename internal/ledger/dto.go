package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type TransactionDTO struct {
	ID                 uuid.UUID                  `json:"id"`
	Sequence           int64                      `json:"sequence"`
	Type               enums.TransactionType      `json:"type"`
	Direction          enums.TransactionDirection `json:"direction"`
	BalanceField       enums.BalanceField         `json:"balance_field"`
	AmountCents        int                        `json:"amount_cents"`
	Currency           enums.Currency             `json:"currency"`
	BalanceBeforeCents int                        `json:"balance_before_cents"`
	BalanceAfterCents  int                        `json:"balance_after_cents"`
	Status             enums.TransactionStatus    `json:"status"`
	OrderID            *uuid.UUID                 `json:"order_id,omitempty"`
	PayoutID           *uuid.UUID                 `json:"payout_id,omitempty"`
	ReturnID           *uuid.UUID                 `json:"return_id,omitempty"`
	ReversesID         *uuid.UUID                 `json:"reverses_id,omitempty"`
	Description        string                     `json:"description,omitempty"`
	Metadata           json.RawMessage            `json:"metadata,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	CompletedAt        *time.Time                 `json:"completed_at,omitempty"`
}

func NewTransactionDTO(t models.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:                 t.ID,
		Sequence:           t.Sequence,
		Type:               t.Type,
		Direction:          t.Direction,
		BalanceField:       t.BalanceField,
		AmountCents:        t.AmountCents,
		Currency:           t.Currency,
		BalanceBeforeCents: t.BalanceBeforeCents,
		BalanceAfterCents:  t.BalanceAfterCents,
		Status:             t.Status,
		OrderID:            t.OrderID,
		PayoutID:           t.PayoutID,
		ReturnID:           t.ReturnID,
		ReversesID:         t.ReversesID,
		Description:        t.Description,
		Metadata:           t.Metadata,
		CreatedAt:          t.CreatedAt,
		CompletedAt:        t.CompletedAt,
	}
}
