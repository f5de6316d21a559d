// Package returns runs the post-delivery return and refund workflow.
package returns

import (
	"context"
	"errors"
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

const defaultReturnWindow = 48 * time.Hour

// claimingStatuses are the return statuses whose units can no longer be
// returned again.
var claimingStatuses = append(enums.OpenReturnStatuses(), enums.ReturnStatusRefunded)

type Service interface {
	Request(ctx context.Context, input RequestReturnInput) (*ReturnDTO, error)
	Approve(ctx context.Context, input ReviewInput) (*ReturnDTO, error)
	Reject(ctx context.Context, input ReviewInput) (*ReturnDTO, error)
	ConfirmReceived(ctx context.Context, input ReviewInput) (*ReturnDTO, error)
	ProcessRefund(ctx context.Context, input ReviewInput) (*ReturnDTO, error)
}

type ItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type RequestReturnInput struct {
	OrderID uuid.UUID
	Actor   types.Actor
	Items   []ItemInput
	Reason  string
}

// ReviewInput drives every vendor-side step. Reason is only read by Reject.
type ReviewInput struct {
	ReturnID uuid.UUID
	Actor    types.Actor
	Reason   string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repository Repository
	Orders     orders.Repository
	Stores     *stores.Repository
	Ledger     ledger.Service
	Inventory  inventory.Adjuster
	DB         txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
	Now        func() time.Time
	// Window is how long after delivery a return may be requested.
	Window time.Duration
}

type service struct {
	repo      Repository
	orders    orders.Repository
	stores    *stores.Repository
	ledger    ledger.Service
	inventory inventory.Adjuster
	db        txRunner
	outbox    outbox.Emitter
	logg      *logger.Logger
	now       func() time.Time
	window    time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("returns repository required")
	}
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
	window := params.Window
	if window <= 0 {
		window = defaultReturnWindow
	}
	return &service{
		repo:      params.Repository,
		orders:    params.Orders,
		stores:    params.Stores,
		ledger:    params.Ledger,
		inventory: params.Inventory,
		db:        params.DB,
		outbox:    params.Outbox,
		logg:      logg,
		now:       now,
		window:    window,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestReturnInput) (*ReturnDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason is required")
	}

	var request *models.ReturnRequest
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orders.Load(ctx, orderRepo, input.OrderID)
		if err != nil {
			return err
		}
		if input.Actor.UserID == uuid.Nil || input.Actor.UserID != order.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the customer who placed the order may return it")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeValidation, "only delivered orders can be returned").
				WithDetails(map[string]any{"status": order.Status})
		}
		now := s.now().UTC()
		if order.DeliveredAt == nil || now.Sub(*order.DeliveredAt) >= s.window {
			return pkgerrors.New(pkgerrors.CodeValidation, "return window has closed").
				WithDetails(map[string]any{"window_hours": s.window.Hours()})
		}

		repo := s.repo.WithTx(tx)
		open, err := repo.HasOpen(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open returns")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeValidation, "a return is already open for this order")
		}

		claimed, err := repo.ReturnedQuantities(ctx, order.ID, claimingStatuses)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load returned quantities")
		}
		items, refund, err := matchItems(order.Items, input.Items, claimed)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].CreatedAt = now
		}
		request = &models.ReturnRequest{
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			StoreID:     order.StoreID,
			Reason:      reason,
			RefundCents: refund,
			Status:      enums.ReturnStatusRequested,
			Items:       items,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}

		metadata := map[string]any{"return_id": request.ID, "refund_cents": refund}
		if err := orders.RecordEvent(ctx, orderRepo, order.ID, enums.OrderEventReturnRequested, "Return requested", input.Actor, metadata, now); err != nil {
			return err
		}
		return s.emitStatus(ctx, tx, request, "", input.Actor, now)
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(ctx, request, "")
	dto := NewReturnDTO(request)
	return &dto, nil
}

func (s *service) Approve(ctx context.Context, input ReviewInput) (*ReturnDTO, error) {
	return s.review(ctx, input, enums.ReturnStatusApproved, func(now time.Time, _ *gorm.DB, request *models.ReturnRequest, updates map[string]any) error {
		updates["approved_at"] = now
		request.ApprovedAt = &now
		return nil
	})
}

func (s *service) Reject(ctx context.Context, input ReviewInput) (*ReturnDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	return s.review(ctx, input, enums.ReturnStatusRejected, func(now time.Time, _ *gorm.DB, request *models.ReturnRequest, updates map[string]any) error {
		updates["rejected_at"] = now
		updates["rejection_reason"] = reason
		request.RejectedAt = &now
		request.RejectionReason = &reason
		return nil
	})
}

// ConfirmReceived puts the returned units back on sale.
func (s *service) ConfirmReceived(ctx context.Context, input ReviewInput) (*ReturnDTO, error) {
	return s.review(ctx, input, enums.ReturnStatusReceived, func(now time.Time, tx *gorm.DB, request *models.ReturnRequest, updates map[string]any) error {
		updates["received_at"] = now
		request.ReceivedAt = &now
		return s.inventory.Restore(ctx, tx, returnLines(request.Items))
	})
}

// ProcessRefund debits the refund from what the order still holds on the
// pending balance, then from the spendable balance. When this return and the
// refunds before it cover every order line in full the order itself becomes
// refunded.
func (s *service) ProcessRefund(ctx context.Context, input ReviewInput) (*ReturnDTO, error) {
	var full bool
	dto, err := s.review(ctx, input, enums.ReturnStatusRefunded, func(now time.Time, tx *gorm.DB, request *models.ReturnRequest, updates map[string]any) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orders.Load(ctx, orderRepo, request.OrderID)
		if err != nil {
			return err
		}

		refunded, err := s.repo.WithTx(tx).ReturnedQuantities(ctx, order.ID, []enums.ReturnStatus{enums.ReturnStatusRefunded})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refunded quantities")
		}

		returnID := request.ID
		entries, err := s.ledger.RefundOrder(ctx, tx, ledger.RefundInput{
			StoreID:     request.StoreID,
			OrderID:     order.ID,
			ReturnID:    &returnID,
			AmountCents: request.RefundCents,
			Currency:    order.Currency,
			Description: fmt.Sprintf("Refund for order #%d", order.OrderNumber),
		})
		if err != nil {
			return err
		}
		entryID := entries[0].ID
		updates["refunded_at"] = now
		updates["transaction_id"] = entryID
		request.RefundedAt = &now
		request.TransactionID = &entryID

		full = coversOrder(order.Items, request.Items, refunded)
		if full {
			if err := orders.ApplyTransition(ctx, orderRepo, order, enums.OrderStatusRefunded, map[string]any{
				"payment_status": enums.PaymentStatusRefunded,
				"updated_at":     now,
			}); err != nil {
				return err
			}
			metadata := map[string]any{"return_id": request.ID, "refund_cents": request.RefundCents}
			if err := orders.RecordEvent(ctx, orderRepo, order.ID, enums.OrderEventRefunded, "Order refunded", input.Actor, metadata, now); err != nil {
				return err
			}
		}

		return s.emit(ctx, tx, enums.EventRefundIssued, request.ID, input.Actor, payloads.RefundIssuedEvent{
			ReturnID:    request.ID,
			OrderID:     request.OrderID,
			StoreID:     request.StoreID,
			CustomerID:  request.CustomerID,
			AmountCents: request.RefundCents,
			Currency:    order.Currency,
			FullRefund:  full,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	if full {
		logCtx := s.logg.WithOrderID(ctx, dto.OrderID.String())
		s.logg.Info(logCtx, "order fully refunded")
	}
	return dto, nil
}

type reviewStep func(now time.Time, tx *gorm.DB, request *models.ReturnRequest, updates map[string]any) error

// review runs one vendor-side transition: owner check, state assertion,
// step-specific effects, guarded update and the status event.
func (s *service) review(ctx context.Context, input ReviewInput, target enums.ReturnStatus, step reviewStep) (*ReturnDTO, error) {
	var request *models.ReturnRequest
	var from enums.ReturnStatus
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		request, err = s.load(ctx, repo, input.ReturnID)
		if err != nil {
			return err
		}
		store, err := s.stores.WithTx(tx).FindByID(ctx, request.StoreID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
		}
		if err := stores.EnsureOwner(store, input.Actor); err != nil {
			return err
		}
		if !request.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "return cannot move from "+request.Status.String()+" to "+target.String()).
				WithDetails(map[string]any{"from": request.Status, "to": target})
		}

		now := s.now().UTC()
		from = request.Status
		updates := map[string]any{"status": target, "updated_at": now}
		if err := step(now, tx, request, updates); err != nil {
			return err
		}
		ok, err := repo.UpdateIfStatus(ctx, request.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "return request was modified concurrently")
		}
		request.Status = target
		return s.emitStatus(ctx, tx, request, from, input.Actor, now)
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, request, from)
	dto := NewReturnDTO(request)
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}
	return request, nil
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, request *models.ReturnRequest, from enums.ReturnStatus, actor types.Actor, at time.Time) error {
	data := payloads.ReturnStatusChangedEvent{
		ReturnID:   request.ID,
		OrderID:    request.OrderID,
		StoreID:    request.StoreID,
		CustomerID: request.CustomerID,
		From:       from,
		To:         request.Status,
	}
	if request.Status == enums.ReturnStatusRejected && request.RejectionReason != nil {
		data.Reason = *request.RejectionReason
	}
	if request.Status == enums.ReturnStatusRequested {
		data.Reason = request.Reason
	}
	return s.emit(ctx, tx, enums.EventReturnStatusChanged, request.ID, actor, data, at)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, returnID uuid.UUID, actor types.Actor, data any, at time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReturn,
		AggregateID:   returnID,
		Actor:         outbox.ActorRefFrom(actor),
		Data:          data,
		Version:       1,
		OccurredAt:    at,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) logTransition(ctx context.Context, request *models.ReturnRequest, from enums.ReturnStatus) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"return_id": request.ID.String(),
		"order_id":  request.OrderID.String(),
		"from":      from,
		"to":        request.Status,
	})
	s.logg.Info(logCtx, "return status changed")
}
