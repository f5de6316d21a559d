package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// CreateOrderResult is returned to the buyer after checkout.
type CreateOrderResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	TotalCents  int       `json:"total_cents"`
}

// OrderDTO is the detail view shared by customers, vendors and admins.
type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        int64               `json:"order_number"`
	StoreID            uuid.UUID           `json:"store_id"`
	CustomerID         uuid.UUID           `json:"customer_id"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	Currency           enums.Currency      `json:"currency"`
	SubtotalCents      int                 `json:"subtotal_cents"`
	DiscountCents      int                 `json:"discount_cents"`
	ShippingCents      int                 `json:"shipping_cents"`
	TotalCents         int                 `json:"total_cents"`
	CommissionCents    int                 `json:"commission_cents"`
	CouponCode         *string             `json:"coupon_code,omitempty"`
	ShippingAddress    types.Address       `json:"shipping_address"`
	Note               *string             `json:"note,omitempty"`
	Carrier            *string             `json:"carrier,omitempty"`
	TrackingNumber     *string             `json:"tracking_number,omitempty"`
	TrackingURL        *string             `json:"tracking_url,omitempty"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	PaidAt             *time.Time          `json:"paid_at,omitempty"`
	ShippedAt          *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	Items              []OrderItemDTO      `json:"items"`
	Events             []OrderEventDTO     `json:"events"`
}

type OrderItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Title          string     `json:"title"`
	SKU            string     `json:"sku,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int        `json:"unit_price_cents"`
	TotalCents     int        `json:"total_cents"`
}

type OrderEventDTO struct {
	Type        enums.OrderEventType `json:"type"`
	Description string               `json:"description"`
	ActorKind   enums.ActorKind      `json:"actor_kind"`
	ActorID     *uuid.UUID           `json:"actor_id,omitempty"`
	Metadata    json.RawMessage      `json:"metadata,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func NewOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		StoreID:            order.StoreID,
		CustomerID:         order.CustomerID,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		Currency:           order.Currency,
		SubtotalCents:      order.SubtotalCents,
		DiscountCents:      order.DiscountCents,
		ShippingCents:      order.ShippingCents,
		TotalCents:         order.TotalCents,
		CommissionCents:    order.CommissionCents,
		CouponCode:         order.CouponCode,
		ShippingAddress:    order.ShippingAddress,
		Note:               order.Note,
		Carrier:            order.Carrier,
		TrackingNumber:     order.TrackingNumber,
		TrackingURL:        order.TrackingURL,
		CancellationReason: order.CancellationReason,
		PaidAt:             order.PaidAt,
		ShippedAt:          order.ShippedAt,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		CreatedAt:          order.CreatedAt,
		Items:              make([]OrderItemDTO, 0, len(order.Items)),
		Events:             make([]OrderEventDTO, 0, len(order.Events)),
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Title:          item.Title,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	for _, event := range order.Events {
		dto.Events = append(dto.Events, OrderEventDTO{
			Type:        event.Type,
			Description: event.Description,
			ActorKind:   event.ActorKind,
			ActorID:     event.ActorID,
			Metadata:    event.Metadata,
			CreatedAt:   event.CreatedAt,
		})
	}
	return dto
}
