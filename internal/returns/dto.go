package returns

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type ReturnDTO struct {
	ID              uuid.UUID          `json:"id"`
	OrderID         uuid.UUID          `json:"order_id"`
	StoreID         uuid.UUID          `json:"store_id"`
	CustomerID      uuid.UUID          `json:"customer_id"`
	Status          enums.ReturnStatus `json:"status"`
	Reason          string             `json:"reason"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
	RefundCents     int                `json:"refund_cents"`
	TransactionID   *uuid.UUID         `json:"transaction_id,omitempty"`
	Items           []ReturnItemDTO    `json:"items"`
	ApprovedAt      *time.Time         `json:"approved_at,omitempty"`
	RejectedAt      *time.Time         `json:"rejected_at,omitempty"`
	ReceivedAt      *time.Time         `json:"received_at,omitempty"`
	RefundedAt      *time.Time         `json:"refunded_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

type ReturnItemDTO struct {
	OrderItemID    uuid.UUID  `json:"order_item_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int        `json:"unit_price_cents"`
}

func NewReturnDTO(r *models.ReturnRequest) ReturnDTO {
	dto := ReturnDTO{
		ID:              r.ID,
		OrderID:         r.OrderID,
		StoreID:         r.StoreID,
		CustomerID:      r.CustomerID,
		Status:          r.Status,
		Reason:          r.Reason,
		RejectionReason: r.RejectionReason,
		RefundCents:     r.RefundCents,
		TransactionID:   r.TransactionID,
		Items:           make([]ReturnItemDTO, 0, len(r.Items)),
		ApprovedAt:      r.ApprovedAt,
		RejectedAt:      r.RejectedAt,
		ReceivedAt:      r.ReceivedAt,
		RefundedAt:      r.RefundedAt,
		CreatedAt:       r.CreatedAt,
	}
	for _, item := range r.Items {
		dto.Items = append(dto.Items, ReturnItemDTO{
			OrderItemID:    item.OrderItemID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return dto
}
