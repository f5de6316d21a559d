package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

const sequenceIndex = "idx_transactions_store_sequence"

// Service is the only code path that moves store balances.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.Transaction, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, target enums.TransactionStatus) (*models.Transaction, error)
	Reconcile(ctx context.Context, storeID uuid.UUID) (*ReconcileReport, error)
	ReleasePending(ctx context.Context, storeID uuid.UUID, cutoff time.Time) (ReleaseResult, error)
	RefundOrder(ctx context.Context, tx *gorm.DB, input RefundInput) ([]*models.Transaction, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (pagination.Page[TransactionDTO], error)
}

// AppendInput describes one balance movement. Status defaults to completed
// and Currency to the store currency.
type AppendInput struct {
	StoreID     uuid.UUID
	Type        enums.TransactionType
	Direction   enums.TransactionDirection
	Field       enums.BalanceField
	AmountCents int
	Currency    enums.Currency
	Status      enums.TransactionStatus
	OrderID     *uuid.UUID
	PayoutID    *uuid.UUID
	ReturnID    *uuid.UUID
	ReversesID  *uuid.UUID
	Description string
	Metadata    json.RawMessage
}

// RefundInput debits a refund for one order. The part of the order's sale
// still held on the pending balance is used first; the rest comes from the
// spendable balance.
type RefundInput struct {
	StoreID     uuid.UUID
	OrderID     uuid.UUID
	ReturnID    *uuid.UUID
	AmountCents int
	Currency    enums.Currency
	Description string
}

// ReleaseResult summarizes one pending-balance release run for a store.
// Voided counts cancelled orders whose hold was written off instead of
// released.
type ReleaseResult struct {
	Orders      int `json:"orders"`
	AmountCents int `json:"amount_cents"`
	Voided      int `json:"voided"`
	VoidedCents int `json:"voided_cents"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type metricsRecorder interface {
	IncEntry(entryType, direction string)
	IncConflict()
	SetDrift(storeID string, mismatches int)
}

type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Outbox     outbox.Emitter
	Metrics    metricsRecorder
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo    Repository
	db      txRunner
	outbox  outbox.Emitter
	metrics metricsRecorder
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
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
		repo:    params.Repository,
		db:      params.DB,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    logg,
		now:     now,
	}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.Transaction, error) {
	if err := validateAppend(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	store, err := repo.FindStore(ctx, input.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store balance")
	}

	before := store.Balance(input.Field)
	after := input.Direction.Apply(before, input.AmountCents)
	if after < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient balance").
			WithDetails(map[string]any{
				"balance_field":   input.Field,
				"available_cents": before,
				"requested_cents": input.AmountCents,
			})
	}

	now := s.now().UTC()
	ok, err := repo.CompareAndSetBalance(ctx, store.ID, input.Field, before, after, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store balance")
	}
	if !ok {
		s.recordConflict()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "store balance changed concurrently")
	}

	seq, err := repo.NextSequence(ctx, store.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate ledger sequence")
	}

	status := input.Status
	if status == "" {
		status = enums.TransactionStatusCompleted
	}
	currency := input.Currency
	if currency == "" {
		currency = store.Currency
	}
	entry := &models.Transaction{
		StoreID:            store.ID,
		Sequence:           seq,
		OrderID:            input.OrderID,
		PayoutID:           input.PayoutID,
		ReturnID:           input.ReturnID,
		ReversesID:         input.ReversesID,
		Type:               input.Type,
		Direction:          input.Direction,
		BalanceField:       input.Field,
		AmountCents:        input.AmountCents,
		Currency:           currency,
		BalanceBeforeCents: before,
		BalanceAfterCents:  after,
		Status:             status,
		Description:        input.Description,
		Metadata:           input.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if status == enums.TransactionStatusCompleted {
		entry.CompletedAt = &now
	}
	if err := repo.Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, sequenceIndex) {
			s.recordConflict()
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "ledger sequence taken concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert ledger entry")
	}
	if s.metrics != nil {
		s.metrics.IncEntry(string(entry.Type), string(entry.Direction))
	}
	return entry, nil
}

func validateAppend(input AppendInput) error {
	switch {
	case input.StoreID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	case !input.Type.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	case !input.Direction.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid direction %q", input.Direction))
	case !input.Field.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid balance field %q", input.Field))
	case input.AmountCents <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	case input.Status != "" && !input.Status.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", input.Status))
	}
	return nil
}

func (s *service) recordConflict() {
	if s.metrics != nil {
		s.metrics.IncConflict()
	}
}

// TransitionStatus moves an entry along its status table. Asking for the
// status the entry already has is a no-op.
func (s *service) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, target enums.TransactionStatus) (*models.Transaction, error) {
	repo := s.repo.WithTx(tx)
	entry, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	if entry.Status == target {
		return entry, nil
	}
	if !entry.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("ledger entry cannot move from %s to %s", entry.Status, target)).
			WithDetails(map[string]any{"from": entry.Status, "to": target})
	}

	now := s.now().UTC()
	ok, err := repo.UpdateStatus(ctx, id, entry.Status, target, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ledger entry status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "ledger entry changed concurrently")
	}
	entry.Status = target
	entry.UpdatedAt = now
	if target == enums.TransactionStatusCompleted {
		entry.CompletedAt = &now
	}
	return entry, nil
}

// ReleasePending moves what is still held for every settled order booked
// before cutoff from the pending balance into the spendable balance.
// Cancelled orders have their hold voided instead.
func (s *service) ReleasePending(ctx context.Context, storeID uuid.UUID, cutoff time.Time) (ReleaseResult, error) {
	var result ReleaseResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		candidates, err := s.repo.WithTx(tx).ReleaseCandidates(ctx, storeID, cutoff)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load release candidates")
		}
		for _, candidate := range candidates {
			amount := candidate.Hold.HeldCents()
			if amount <= 0 {
				continue
			}
			orderID := candidate.OrderID
			if candidate.Cancelled {
				if _, err := s.Append(ctx, tx, AppendInput{
					StoreID:     storeID,
					Type:        enums.TransactionTypeRefund,
					Direction:   enums.DirectionDebit,
					Field:       enums.BalanceFieldPending,
					AmountCents: amount,
					Currency:    candidate.Currency,
					OrderID:     &orderID,
					Description: "hold voided for cancelled order",
				}); err != nil {
					return err
				}
				result.Voided++
				result.VoidedCents += amount
				continue
			}
			if err := s.release(ctx, tx, storeID, orderID, amount, candidate.Currency); err != nil {
				return err
			}
			result.Orders++
			result.AmountCents += amount
		}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	if result.Orders > 0 || result.Voided > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"store_id":     storeID.String(),
			"orders":       result.Orders,
			"amount_cents": result.AmountCents,
			"voided":       result.Voided,
			"voided_cents": result.VoidedCents,
		})
		s.logg.Info(logCtx, "pending balance released")
	}
	return result, nil
}

func (s *service) release(ctx context.Context, tx *gorm.DB, storeID, orderID uuid.UUID, amount int, currency enums.Currency) error {
	for _, leg := range []struct {
		direction enums.TransactionDirection
		field     enums.BalanceField
	}{
		{enums.DirectionDebit, enums.BalanceFieldPending},
		{enums.DirectionCredit, enums.BalanceFieldSpendable},
	} {
		if _, err := s.Append(ctx, tx, AppendInput{
			StoreID:     storeID,
			Type:        enums.TransactionTypeRelease,
			Direction:   leg.direction,
			Field:       leg.field,
			AmountCents: amount,
			Currency:    currency,
			OrderID:     &orderID,
			Description: "pending balance release",
		}); err != nil {
			return err
		}
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPendingReleased,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data: payloads.PendingReleasedEvent{
			StoreID:     storeID,
			OrderID:     orderID,
			AmountCents: amount,
			Currency:    currency,
		},
		OccurredAt: s.now(),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue release event")
	}
	return nil
}

// RefundOrder must run inside the caller's transaction. The first entry
// returned is the one that touched the hold whenever the hold was used.
func (s *service) RefundOrder(ctx context.Context, tx *gorm.DB, input RefundInput) ([]*models.Transaction, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	hold, err := s.repo.WithTx(tx).OrderHold(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order hold")
	}

	fromHold := min(input.AmountCents, hold.HeldCents())
	parts := []struct {
		field  enums.BalanceField
		amount int
	}{
		{enums.BalanceFieldPending, fromHold},
		{enums.BalanceFieldSpendable, input.AmountCents - fromHold},
	}

	orderID := input.OrderID
	var entries []*models.Transaction
	for _, part := range parts {
		if part.amount <= 0 {
			continue
		}
		entry, err := s.Append(ctx, tx, AppendInput{
			StoreID:     input.StoreID,
			Type:        enums.TransactionTypeRefund,
			Direction:   enums.DirectionDebit,
			Field:       part.field,
			AmountCents: part.amount,
			Currency:    input.Currency,
			OrderID:     &orderID,
			ReturnID:    input.ReturnID,
			Description: input.Description,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *service) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (pagination.Page[TransactionDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[TransactionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListPage(ctx, storeID, params.Limit, cursor)
	if err != nil {
		return pagination.Page[TransactionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	dtos := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewTransactionDTO(row))
	}
	return pagination.Trim(dtos, params.Limit, func(dto TransactionDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: dto.CreatedAt, ID: dto.ID}
	}), nil
}
