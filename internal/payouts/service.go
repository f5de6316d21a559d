// Package payouts moves money out of a store's spendable balance and tracks
// the disbursement until the provider confirms or rejects it.
package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

const (
	defaultMinPayoutCents = 5000
	defaultCooldown       = 24 * time.Hour
)

type Service interface {
	Request(ctx context.Context, input RequestPayoutInput) (*models.Payout, error)
	MarkProcessing(ctx context.Context, payoutID uuid.UUID) (enums.Outcome, error)
	Confirm(ctx context.Context, input ConfirmPayoutInput) (enums.Outcome, error)
	Fail(ctx context.Context, input FailPayoutInput) (enums.Outcome, error)
	List(ctx context.Context, storeID uuid.UUID, actor types.Actor, params pagination.Params) (pagination.Page[PayoutDTO], error)
}

type RequestPayoutInput struct {
	StoreID     uuid.UUID
	Actor       types.Actor
	AmountCents int
	Method      enums.PayoutMethod
	Destination map[string]string
}

type ConfirmPayoutInput struct {
	PayoutID          uuid.UUID
	ExternalReference string
}

type FailPayoutInput struct {
	PayoutID uuid.UUID
	Reason   string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repository Repository
	Stores     *stores.Repository
	Ledger     ledger.Service
	DB         txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
	Now        func() time.Time
	// MinPayoutCents is the smallest amount a vendor may withdraw.
	MinPayoutCents int
	// Cooldown is the wait after a completed payout before the next request.
	Cooldown time.Duration
}

type service struct {
	repo      Repository
	stores    *stores.Repository
	ledger    ledger.Service
	db        txRunner
	outbox    outbox.Emitter
	logg      *logger.Logger
	now       func() time.Time
	minAmount int
	cooldown  time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
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
	minAmount := params.MinPayoutCents
	if minAmount <= 0 {
		minAmount = defaultMinPayoutCents
	}
	cooldown := params.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &service{
		repo:      params.Repository,
		stores:    params.Stores,
		ledger:    params.Ledger,
		db:        params.DB,
		outbox:    params.Outbox,
		logg:      logg,
		now:       now,
		minAmount: minAmount,
		cooldown:  cooldown,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestPayoutInput) (*models.Payout, error) {
	method := enums.PayoutMethod(strings.TrimSpace(string(input.Method)))
	if method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout method is required")
	}

	var payout *models.Payout
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		store, err := s.loadStore(ctx, tx, input.StoreID)
		if err != nil {
			return err
		}
		if err := stores.EnsureOwner(store, input.Actor); err != nil {
			return err
		}

		if input.AmountCents < s.minAmount {
			return pkgerrors.New(pkgerrors.CodeValidation, "payout amount is below the minimum").
				WithDetails(map[string]any{"min_payout_cents": s.minAmount, "requested_cents": input.AmountCents})
		}
		if input.AmountCents > store.BalanceCents {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient balance").
				WithDetails(map[string]any{"available_cents": store.BalanceCents, "requested_cents": input.AmountCents})
		}

		repo := s.repo.WithTx(tx)
		busy, err := repo.HasProcessing(ctx, store.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check processing payouts")
		}
		if busy {
			return pkgerrors.New(pkgerrors.CodeValidation, "a payout is already being processed")
		}
		now := s.now().UTC()
		last, err := repo.LastCompletedAt(ctx, store.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last payout")
		}
		if last != nil && now.Sub(*last) < s.cooldown {
			return pkgerrors.New(pkgerrors.CodeValidation, "payout cooldown has not elapsed").
				WithDetails(map[string]any{"next_eligible_at": last.Add(s.cooldown).UTC()})
		}

		fee := Fee(method, input.AmountCents)
		if fee >= input.AmountCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "payout amount does not cover the fee").
				WithDetails(map[string]any{"fee_cents": fee})
		}

		payoutID := uuid.New()
		entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			StoreID:     store.ID,
			Type:        enums.TransactionTypePayout,
			Direction:   enums.DirectionDebit,
			Field:       enums.BalanceFieldSpendable,
			AmountCents: input.AmountCents,
			Currency:    store.Currency,
			Status:      enums.TransactionStatusPending,
			PayoutID:    &payoutID,
			Description: "Payout via " + method.String(),
		})
		if err != nil {
			return err
		}

		payout = &models.Payout{
			ID:            payoutID,
			StoreID:       store.ID,
			AmountCents:   input.AmountCents,
			FeeCents:      fee,
			NetCents:      input.AmountCents - fee,
			Currency:      store.Currency,
			Method:        method,
			Destination:   types.StringMap(input.Destination),
			Status:        enums.PayoutStatusPending,
			TransactionID: entry.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		return s.emit(ctx, tx, enums.EventPayoutRequested, payout, input.Actor, now)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payout_id":    payout.ID.String(),
		"store_id":     payout.StoreID.String(),
		"amount_cents": payout.AmountCents,
		"method":       payout.Method,
	})
	s.logg.Info(logCtx, "payout requested")
	return payout, nil
}

func (s *service) MarkProcessing(ctx context.Context, payoutID uuid.UUID) (enums.Outcome, error) {
	outcome := enums.OutcomeApplied
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := s.load(ctx, repo, payoutID)
		if err != nil {
			return err
		}
		if payout.Status == enums.PayoutStatusProcessing {
			outcome = enums.OutcomeAlreadyProcessed
			return nil
		}
		if err := assertPayoutTransition(payout.Status, enums.PayoutStatusProcessing); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := s.update(ctx, repo, payout, map[string]any{
			"status":        enums.PayoutStatusProcessing,
			"processing_at": now,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		payout.Status = enums.PayoutStatusProcessing
		return s.emit(ctx, tx, enums.EventPayoutProcessing, payout, types.SystemActor(), now)
	})
	if err != nil {
		return "", err
	}
	s.logOutcome(ctx, payoutID, enums.PayoutStatusProcessing, outcome)
	return outcome, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmPayoutInput) (enums.Outcome, error) {
	reference := strings.TrimSpace(input.ExternalReference)
	outcome := enums.OutcomeApplied
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := s.load(ctx, repo, input.PayoutID)
		if err != nil {
			return err
		}
		if payout.Status == enums.PayoutStatusCompleted {
			outcome = enums.OutcomeAlreadyProcessed
			return nil
		}
		if err := assertPayoutTransition(payout.Status, enums.PayoutStatusCompleted); err != nil {
			return err
		}
		now := s.now().UTC()
		updates := map[string]any{
			"status":       enums.PayoutStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}
		if reference != "" {
			updates["external_reference"] = reference
			payout.ExternalReference = &reference
		}
		if err := s.update(ctx, repo, payout, updates); err != nil {
			return err
		}
		payout.Status = enums.PayoutStatusCompleted
		if _, err := s.ledger.TransitionStatus(ctx, tx, payout.TransactionID, enums.TransactionStatusCompleted); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPayoutCompleted, payout, types.SystemActor(), now)
	})
	if err != nil {
		return "", err
	}
	s.logOutcome(ctx, input.PayoutID, enums.PayoutStatusCompleted, outcome)
	return outcome, nil
}

// Fail marks a pending or processing payout failed and credits the gross
// amount back with an entry that references the original debit.
func (s *service) Fail(ctx context.Context, input FailPayoutInput) (enums.Outcome, error) {
	reason := strings.TrimSpace(input.Reason)
	outcome := enums.OutcomeApplied
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := s.load(ctx, repo, input.PayoutID)
		if err != nil {
			return err
		}
		if payout.Status == enums.PayoutStatusFailed || payout.Status == enums.PayoutStatusCompleted {
			outcome = enums.OutcomeAlreadyProcessed
			return nil
		}
		if _, err := s.ledger.TransitionStatus(ctx, tx, payout.TransactionID, enums.TransactionStatusFailed); err != nil {
			return err
		}
		originalID := payout.TransactionID
		payoutID := payout.ID
		reversal, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			StoreID:     payout.StoreID,
			Type:        enums.TransactionTypeCredit,
			Direction:   enums.DirectionCredit,
			Field:       enums.BalanceFieldSpendable,
			AmountCents: payout.AmountCents,
			Currency:    payout.Currency,
			PayoutID:    &payoutID,
			ReversesID:  &originalID,
			Description: "Reversal of failed payout",
		})
		if err != nil {
			return err
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":                  enums.PayoutStatusFailed,
			"failed_at":               now,
			"reversal_transaction_id": reversal.ID,
			"updated_at":              now,
		}
		if reason != "" {
			updates["failure_reason"] = reason
			payout.FailureReason = &reason
		}
		if err := s.update(ctx, repo, payout, updates); err != nil {
			return err
		}
		payout.Status = enums.PayoutStatusFailed
		return s.emit(ctx, tx, enums.EventPayoutFailed, payout, types.SystemActor(), now)
	})
	if err != nil {
		return "", err
	}
	s.logOutcome(ctx, input.PayoutID, enums.PayoutStatusFailed, outcome)
	return outcome, nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, actor types.Actor, params pagination.Params) (pagination.Page[PayoutDTO], error) {
	if !actor.IsAdmin() {
		store, err := s.loadStore(ctx, nil, storeID)
		if err != nil {
			return pagination.Page[PayoutDTO]{}, err
		}
		if err := stores.EnsureOwner(store, actor); err != nil {
			return pagination.Page[PayoutDTO]{}, err
		}
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[PayoutDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListPage(ctx, storeID, params.Limit, cursor)
	if err != nil {
		return pagination.Page[PayoutDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	dtos := make([]PayoutDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewPayoutDTO(&rows[i]))
	}
	return pagination.Trim(dtos, params.Limit, func(dto PayoutDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: dto.CreatedAt, ID: dto.ID}
	}), nil
}

func assertPayoutTransition(from, to enums.PayoutStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payout cannot move from "+from.String()+" to "+to.String()).
		WithDetails(map[string]any{"from": from, "to": to})
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Payout, error) {
	payout, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

func (s *service) update(ctx context.Context, repo Repository, payout *models.Payout, updates map[string]any) error {
	ok, err := repo.UpdateIfStatus(ctx, payout.ID, payout.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "payout was modified concurrently")
	}
	return nil
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

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payout *models.Payout, actor types.Actor, at time.Time) error {
	data := payloads.PayoutEvent{
		PayoutID:    payout.ID,
		StoreID:     payout.StoreID,
		Status:      payout.Status,
		AmountCents: payout.AmountCents,
		FeeCents:    payout.FeeCents,
		NetCents:    payout.NetCents,
		Currency:    payout.Currency,
		Method:      payout.Method.String(),
	}
	if eventType == enums.EventPayoutRequested {
		data.Destination = payout.Destination
	}
	if payout.ExternalReference != nil {
		data.ExternalReference = *payout.ExternalReference
	}
	if payout.FailureReason != nil {
		data.FailureReason = *payout.FailureReason
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
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

func (s *service) logOutcome(ctx context.Context, payoutID uuid.UUID, status enums.PayoutStatus, outcome enums.Outcome) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payout_id": payoutID.String(),
		"status":    status,
		"outcome":   outcome,
	})
	if outcome == enums.OutcomeApplied {
		s.logg.Info(logCtx, "payout status changed")
		return
	}
	s.logg.Debug(logCtx, "payout callback already processed")
}
