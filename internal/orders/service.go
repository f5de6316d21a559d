package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/coupons"
	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/internal/pricing"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

const defaultCancelWindow = 2 * time.Hour

// Service drives an order from checkout to fulfillment or cancellation.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	Cancel(ctx context.Context, input CancelOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID, actor types.Actor) (*OrderDTO, error)
}

// ItemInput is one requested line. Prices always come from the catalog.
type ItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	StoreID         uuid.UUID
	Actor           types.Actor
	Items           []ItemInput
	ShippingAddress types.Address
	CouponCode      *string
	Note            *string
}

type TrackingInput struct {
	Carrier        string
	TrackingNumber string
	TrackingURL    *string
}

type UpdateStatusInput struct {
	OrderID  uuid.UUID
	Actor    types.Actor
	Target   enums.OrderStatus
	Tracking *TrackingInput
}

type CancelOrderInput struct {
	OrderID uuid.UUID
	Actor   types.Actor
	Reason  *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderMetrics interface {
	IncCreated()
	IncTransition(from, to string)
}

type ServiceParams struct {
	Repository Repository
	Stores     *stores.Repository
	Products   *products.Repository
	Coupons    coupons.Service
	Inventory  inventory.Adjuster
	DB         txRunner
	Outbox     outbox.Emitter
	Metrics    orderMetrics
	Logger     *logger.Logger
	Now        func() time.Time
	// ShippingCents is the flat shipping quote added to every order.
	ShippingCents int
	// CancelWindow bounds how long a customer may cancel a paid order.
	CancelWindow time.Duration
}

type service struct {
	repo          Repository
	stores        *stores.Repository
	products      *products.Repository
	coupons       coupons.Service
	inventory     inventory.Adjuster
	db            txRunner
	outbox        outbox.Emitter
	metrics       orderMetrics
	logg          *logger.Logger
	now           func() time.Time
	shippingCents int
	cancelWindow  time.Duration
}

// NewService wires an order service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.ShippingCents < 0 {
		return nil, fmt.Errorf("shipping rate must not be negative")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	window := params.CancelWindow
	if window <= 0 {
		window = defaultCancelWindow
	}
	return &service{
		repo:          params.Repository,
		stores:        params.Stores,
		products:      params.Products,
		coupons:       params.Coupons,
		inventory:     params.Inventory,
		db:            params.DB,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		logg:          logg,
		now:           now,
		shippingCents: params.ShippingCents,
		cancelWindow:  window,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	lines, err := aggregateItems(input.Items)
	if err != nil {
		return nil, err
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		store, err := s.loadStore(ctx, tx, input.StoreID)
		if err != nil {
			return err
		}
		if !store.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "store is not accepting orders")
		}
		if store.OwnerID == input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot order from your own store")
		}

		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, productIDs(lines))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		items, subtotal, err := priceLines(store.ID, lines, catalog)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		shipping := s.shippingCents
		discount := 0
		var coupon *models.Coupon
		if input.CouponCode != nil && strings.TrimSpace(*input.CouponCode) != "" {
			coupon, err = s.coupons.Resolve(ctx, tx, coupons.ResolveInput{
				StoreID:    store.ID,
				Code:       *input.CouponCode,
				CustomerID: input.Actor.UserID,
				Subtotal:   subtotal,
				Now:        now,
			})
			if err != nil {
				return err
			}
			terms := coupons.Terms(coupon)
			discount = pricing.Discount(*terms, subtotal)
			shipping = pricing.ApplyShipping(terms, shipping)
		}
		total, err := pricing.Total(subtotal, discount, shipping)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute order total")
		}

		repo := s.repo.WithTx(tx)
		number, err := repo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}
		for i := range items {
			items[i].CreatedAt = now
		}
		order = &models.Order{
			OrderNumber:     number,
			CustomerID:      input.Actor.UserID,
			StoreID:         store.ID,
			SubtotalCents:   subtotal,
			ShippingCents:   shipping,
			DiscountCents:   discount,
			TotalCents:      total,
			CommissionCents: pricing.Commission(total, store.Plan.CommissionRateBps()),
			Currency:        store.Currency,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			ShippingAddress: input.ShippingAddress,
			Note:            trimmed(input.Note),
			Items:           items,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if coupon != nil {
			code := coupon.Code
			order.CouponCode = &code
		}
		if err := repo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		metadata := map[string]any{"total_cents": order.TotalCents}
		if order.CouponCode != nil {
			metadata["coupon_code"] = *order.CouponCode
		}
		if err := RecordEvent(ctx, repo, order.ID, enums.OrderEventCreated, "Order placed", input.Actor, metadata, now); err != nil {
			return err
		}
		if err := s.inventory.Decrement(ctx, tx, InventoryLines(order.Items)); err != nil {
			return err
		}
		if err := s.coupons.Redeem(ctx, tx, coupon); err != nil {
			return err
		}

		payload := payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			StoreID:     order.StoreID,
			CustomerID:  order.CustomerID,
			TotalCents:  order.TotalCents,
			Currency:    order.Currency,
		}
		if order.CouponCode != nil {
			payload.CouponCode = *order.CouponCode
		}
		return s.emit(ctx, tx, enums.EventOrderCreated, order.ID, input.Actor, payload, now)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncCreated()
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"store_id":     order.StoreID.String(),
		"total_cents":  order.TotalCents,
	})
	s.logg.Info(logCtx, "order created")

	return &CreateOrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalCents:  order.TotalCents,
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	switch input.Target {
	case enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be processing, shipped or delivered").
			WithDetails(map[string]any{"target": input.Target})
	}

	var from enums.OrderStatus
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := Load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		store, err := s.loadStore(ctx, tx, order.StoreID)
		if err != nil {
			return err
		}
		if err := stores.EnsureOwner(store, input.Actor); err != nil {
			return err
		}

		now := s.now().UTC()
		from = order.Status
		updates := map[string]any{"updated_at": now}
		payload := payloads.OrderStatusChangedEvent{
			OrderID:    order.ID,
			StoreID:    order.StoreID,
			CustomerID: order.CustomerID,
			From:       from,
			To:         input.Target,
		}
		switch input.Target {
		case enums.OrderStatusShipped:
			updates["shipped_at"] = now
			if input.Tracking != nil {
				updates["carrier"] = strings.TrimSpace(input.Tracking.Carrier)
				updates["tracking_number"] = strings.TrimSpace(input.Tracking.TrackingNumber)
				updates["tracking_url"] = trimmed(input.Tracking.TrackingURL)
				payload.Carrier = strings.TrimSpace(input.Tracking.Carrier)
				payload.TrackingNumber = strings.TrimSpace(input.Tracking.TrackingNumber)
				if input.Tracking.TrackingURL != nil {
					payload.TrackingURL = strings.TrimSpace(*input.Tracking.TrackingURL)
				}
			}
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		}
		if err := ApplyTransition(ctx, repo, order, input.Target, updates); err != nil {
			return err
		}

		description := fmt.Sprintf("Order marked %s", input.Target)
		metadata := map[string]any{"from": from, "to": input.Target}
		if err := RecordEvent(ctx, repo, order.ID, enums.OrderEventStatusChanged, description, input.Actor, metadata, now); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventOrderStatusChanged, order.ID, input.Actor, payload, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, input.OrderID, from, input.Target)
	return s.detail(ctx, input.OrderID)
}

func (s *service) Cancel(ctx context.Context, input CancelOrderInput) (*OrderDTO, error) {
	var from enums.OrderStatus
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := Load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		store, err := s.loadStore(ctx, tx, order.StoreID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if err := s.authorizeCancel(order, store, input.Actor, now); err != nil {
			return err
		}

		from = order.Status
		refundRequired := order.PaymentStatus == enums.PaymentStatusPaid
		reason := trimmed(input.Reason)
		updates := map[string]any{
			"cancelled_at":        now,
			"cancellation_reason": reason,
			"updated_at":          now,
		}
		if refundRequired {
			updates["payment_status"] = enums.PaymentStatusRefunded
		}
		if err := ApplyTransition(ctx, repo, order, enums.OrderStatusCancelled, updates); err != nil {
			return err
		}
		if err := s.inventory.Restore(ctx, tx, InventoryLines(order.Items)); err != nil {
			return err
		}

		metadata := map[string]any{"from": from, "refund_required": refundRequired}
		if reason != nil {
			metadata["reason"] = *reason
		}
		if err := RecordEvent(ctx, repo, order.ID, enums.OrderEventCancelled, "Order cancelled", input.Actor, metadata, now); err != nil {
			return err
		}

		cancelled := payloads.OrderCancelledEvent{
			OrderID:        order.ID,
			StoreID:        order.StoreID,
			CustomerID:     order.CustomerID,
			CancelledBy:    actorKind(input.Actor),
			CancelledAt:    now,
			RefundRequired: refundRequired,
		}
		if reason != nil {
			cancelled.Reason = *reason
		}
		if err := s.emit(ctx, tx, enums.EventOrderCancelled, order.ID, input.Actor, cancelled, now); err != nil {
			return err
		}
		if !refundRequired {
			return nil
		}
		refund := payloads.OrderRefundRequiredEvent{
			OrderID:     order.ID,
			StoreID:     order.StoreID,
			AmountCents: order.TotalCents,
			Currency:    order.Currency,
		}
		if order.PaymentReference != nil {
			refund.PaymentReference = *order.PaymentReference
		}
		return s.emit(ctx, tx, enums.EventOrderRefundRequired, order.ID, input.Actor, refund, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, input.OrderID, from, enums.OrderStatusCancelled)
	return s.detail(ctx, input.OrderID)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor types.Actor) (*OrderDTO, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.IsAdmin() && actor.UserID != order.CustomerID {
		store, err := s.loadStore(ctx, nil, order.StoreID)
		if err != nil {
			return nil, err
		}
		if err := stores.EnsureOwner(store, actor); err != nil {
			return nil, err
		}
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

// authorizeCancel applies the per-actor cancellation rules. The state machine
// itself is asserted afterwards.
func (s *service) authorizeCancel(order *models.Order, store *models.Store, actor types.Actor, now time.Time) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.UserID != uuid.Nil && actor.UserID == order.CustomerID:
		switch order.Status {
		case enums.OrderStatusPending:
			return nil
		case enums.OrderStatusPaid:
			if now.Sub(order.CreatedAt) < s.cancelWindow {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "cancellation window has passed").
				WithDetails(map[string]any{"window_hours": s.cancelWindow.Hours()})
		case enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered:
			return pkgerrors.New(pkgerrors.CodeForbidden, "order can no longer be cancelled by the customer")
		}
		return nil
	case actor.Kind == enums.ActorVendor && actor.UserID == store.OwnerID:
		if order.Status == enums.OrderStatusProcessing {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendors may only cancel processing orders")
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to cancel this order")
	}
}

func (s *service) loadStore(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Store, error) {
	store, err := s.stores.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID uuid.UUID, actor types.Actor, data any, at time.Time) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         outbox.ActorRefFrom(actor),
		Data:          data,
		Version:       1,
		OccurredAt:    at,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) detail(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

func (s *service) recordTransition(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition(from.String(), to.String())
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"from":     from,
		"to":       to,
	})
	s.logg.Info(logCtx, "order status changed")
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
