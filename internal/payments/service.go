// Package payments settles provider payment callbacks against orders and
// books the proceeds on the store's pending balance.
package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Service applies payment outcomes. Both operations are idempotent: a repeated
// callback reports OutcomeAlreadyProcessed and changes nothing.
type Service interface {
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*SettlementResult, error)
	FailPayment(ctx context.Context, input FailPaymentInput) (*SettlementResult, error)
}

type ConfirmPaymentInput struct {
	OrderID          uuid.UUID
	PaymentReference string
	AmountCents      int
	Currency         enums.Currency
}

type FailPaymentInput struct {
	OrderID uuid.UUID
	Reason  string
}

type SettlementResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Outcome       enums.Outcome       `json:"outcome"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderMetrics interface {
	IncTransition(from, to string)
}

type ServiceParams struct {
	Orders    orders.Repository
	Stores    *stores.Repository
	Ledger    ledger.Service
	Inventory inventory.Adjuster
	DB        txRunner
	Outbox    outbox.Emitter
	Metrics   orderMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	orders    orders.Repository
	stores    *stores.Repository
	ledger    ledger.Service
	inventory inventory.Adjuster
	db        txRunner
	outbox    outbox.Emitter
	metrics   orderMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
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
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:    params.Orders,
		stores:    params.Stores,
		ledger:    params.Ledger,
		inventory: params.Inventory,
		db:        params.DB,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      logg,
		now:       now,
	}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*SettlementResult, error) {
	reference := strings.TrimSpace(input.PaymentReference)
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	var result *SettlementResult
	var from enums.OrderStatus
	var late bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := orders.Load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			result = settled(order, enums.OutcomeAlreadyProcessed)
			return nil
		}
		if order.Status == enums.OrderStatusCancelled {
			if order.PaymentStatus == enums.PaymentStatusRefunded {
				result = settled(order, enums.OutcomeAlreadyProcessed)
				return nil
			}
			late = true
			if err := s.refundLateCapture(ctx, tx, order, reference, input); err != nil {
				return err
			}
			result = settled(order, enums.OutcomeApplied)
			return nil
		}
		if err := orders.AssertTransition(order.Status, enums.OrderStatusPaid); err != nil {
			return err
		}
		if input.AmountCents != order.TotalCents || (input.Currency != "" && input.Currency != order.Currency) {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment does not match order total").
				WithDetails(map[string]any{
					"expected_cents":    order.TotalCents,
					"expected_currency": order.Currency,
					"received_cents":    input.AmountCents,
					"received_currency": input.Currency,
				})
		}

		now := s.now().UTC()
		from = order.Status
		if err := orders.ApplyTransition(ctx, repo, order, enums.OrderStatusPaid, map[string]any{
			"payment_status":    enums.PaymentStatusPaid,
			"payment_reference": reference,
			"paid_at":           now,
			"updated_at":        now,
		}); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusPaid

		if err := s.bookSale(ctx, tx, order); err != nil {
			return err
		}
		if err := s.stores.WithTx(tx).IncrementOrderCount(ctx, order.StoreID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment store order count")
		}

		metadata := map[string]any{"payment_reference": reference, "amount_cents": order.TotalCents}
		if err := orders.RecordEvent(ctx, repo, order.ID, enums.OrderEventPaymentConfirmed, "Payment confirmed", types.SystemActor(), metadata, now); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, enums.EventOrderPaid, order.ID, payloads.OrderPaidEvent{
			OrderID:          order.ID,
			StoreID:          order.StoreID,
			AmountCents:      order.TotalCents,
			CommissionCents:  order.CommissionCents,
			NetCents:         order.TotalCents - order.CommissionCents,
			Currency:         order.Currency,
			PaymentReference: reference,
			PaidAt:           now,
		}, now); err != nil {
			return err
		}
		result = settled(order, enums.OutcomeApplied)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": result.OrderID.String(),
		"outcome":  result.Outcome,
	})
	switch {
	case late && result.Outcome == enums.OutcomeApplied:
		s.logg.Warn(logCtx, "payment captured after cancellation, refund queued")
	case result.Outcome == enums.OutcomeApplied:
		if s.metrics != nil {
			s.metrics.IncTransition(from.String(), enums.OrderStatusPaid.String())
		}
		s.logg.Info(logCtx, "payment confirmed")
	default:
		s.logg.Debug(logCtx, "payment already confirmed")
	}
	return result, nil
}

// refundLateCapture acknowledges a capture for an order that was cancelled
// before payment. Nothing is booked on the ledger; the capture is handed
// back to the payment operator through order_refund_required.
func (s *service) refundLateCapture(ctx context.Context, tx *gorm.DB, order *models.Order, reference string, input ConfirmPaymentInput) error {
	repo := s.orders.WithTx(tx)
	now := s.now().UTC()
	ok, err := repo.UpdateIfStatus(ctx, order.ID, enums.OrderStatusCancelled, map[string]any{
		"payment_status":    enums.PaymentStatusRefunded,
		"payment_reference": reference,
		"updated_at":        now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record late payment")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed while recording payment")
	}
	order.PaymentStatus = enums.PaymentStatusRefunded
	order.PaymentReference = &reference

	currency := input.Currency
	if currency == "" {
		currency = order.Currency
	}
	metadata := map[string]any{
		"payment_reference": reference,
		"amount_cents":      input.AmountCents,
		"refund_required":   true,
	}
	if err := orders.RecordEvent(ctx, repo, order.ID, enums.OrderEventPaymentConfirmed, "Payment captured after cancellation", types.SystemActor(), metadata, now); err != nil {
		return err
	}
	return s.emit(ctx, tx, enums.EventOrderRefundRequired, order.ID, payloads.OrderRefundRequiredEvent{
		OrderID:          order.ID,
		StoreID:          order.StoreID,
		AmountCents:      input.AmountCents,
		Currency:         currency,
		PaymentReference: reference,
	}, now)
}

// bookSale credits the gross total and debits the commission on the pending
// balance, leaving total - commission held until release.
func (s *service) bookSale(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	orderID := order.ID
	if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
		StoreID:     order.StoreID,
		Type:        enums.TransactionTypeSale,
		Direction:   enums.DirectionCredit,
		Field:       enums.BalanceFieldPending,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		OrderID:     &orderID,
		Description: fmt.Sprintf("Sale for order #%d", order.OrderNumber),
	}); err != nil {
		return err
	}
	if order.CommissionCents <= 0 {
		return nil
	}
	_, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
		StoreID:     order.StoreID,
		Type:        enums.TransactionTypeFee,
		Direction:   enums.DirectionDebit,
		Field:       enums.BalanceFieldPending,
		AmountCents: order.CommissionCents,
		Currency:    order.Currency,
		OrderID:     &orderID,
		Description: fmt.Sprintf("Marketplace commission for order #%d", order.OrderNumber),
	})
	return err
}

func (s *service) FailPayment(ctx context.Context, input FailPaymentInput) (*SettlementResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	reason := strings.TrimSpace(input.Reason)

	var result *SettlementResult
	var from enums.OrderStatus
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := orders.Load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		switch order.PaymentStatus {
		case enums.PaymentStatusFailed, enums.PaymentStatusPaid, enums.PaymentStatusRefunded:
			result = settled(order, enums.OutcomeAlreadyProcessed)
			return nil
		}

		now := s.now().UTC()
		if order.Status == enums.OrderStatusCancelled {
			// Stock went back when the order was cancelled.
			if err := orders.Update(ctx, repo, order, map[string]any{
				"payment_status": enums.PaymentStatusFailed,
				"updated_at":     now,
			}); err != nil {
				return err
			}
			order.PaymentStatus = enums.PaymentStatusFailed
			result = settled(order, enums.OutcomeApplied)
			return nil
		}

		from = order.Status
		updates := map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"cancelled_at":   now,
			"updated_at":     now,
		}
		if reason != "" {
			updates["cancellation_reason"] = "payment failed: " + reason
		} else {
			updates["cancellation_reason"] = "payment failed"
		}
		if err := orders.ApplyTransition(ctx, repo, order, enums.OrderStatusCancelled, updates); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusFailed
		if err := s.inventory.Restore(ctx, tx, orders.InventoryLines(order.Items)); err != nil {
			return err
		}

		metadata := map[string]any{}
		if reason != "" {
			metadata["reason"] = reason
		}
		if err := orders.RecordEvent(ctx, repo, order.ID, enums.OrderEventPaymentFailed, "Payment failed", types.SystemActor(), metadata, now); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, enums.EventOrderPaymentFailed, order.ID, payloads.OrderPaymentFailedEvent{
			OrderID: order.ID,
			StoreID: order.StoreID,
			Reason:  reason,
		}, now); err != nil {
			return err
		}
		result = settled(order, enums.OutcomeApplied)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": result.OrderID.String(),
		"outcome":  result.Outcome,
	})
	if result.Outcome == enums.OutcomeApplied && from != "" {
		if s.metrics != nil {
			s.metrics.IncTransition(from.String(), enums.OrderStatusCancelled.String())
		}
		s.logg.Info(logCtx, "payment failed, order cancelled")
	} else {
		s.logg.Debug(logCtx, "payment failure recorded")
	}
	return result, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID uuid.UUID, data any, at time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         outbox.ActorRefFrom(types.SystemActor()),
		Data:          data,
		Version:       1,
		OccurredAt:    at,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func settled(order *models.Order, outcome enums.Outcome) *SettlementResult {
	return &SettlementResult{
		OrderID:       order.ID,
		Outcome:       outcome,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	}
}
