package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type countingMetrics struct {
	entries   int
	conflicts int
	drift     map[string]int
}

func (m *countingMetrics) IncEntry(string, string) { m.entries++ }
func (m *countingMetrics) IncConflict()            { m.conflicts++ }
func (m *countingMetrics) SetDrift(storeID string, mismatches int) {
	if m.drift == nil {
		m.drift = map[string]int{}
	}
	m.drift[storeID] = mismatches
}

type harness struct {
	f       *dbtest.Fixture
	svc     Service
	metrics *countingMetrics
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	f := dbtest.NewFixture(t)
	h := &harness{f: f, metrics: &countingMetrics{}, now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(f.DB),
		DB:         f.Client,
		Outbox:     outbox.NewService(outbox.NewRepository(f.DB), nil),
		Metrics:    h.metrics,
		Now:        func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) append(t *testing.T, input AppendInput) (*models.Transaction, error) {
	t.Helper()
	var entry *models.Transaction
	err := h.f.Client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		entry, err = h.svc.Append(context.Background(), tx, input)
		return err
	})
	return entry, err
}

func TestAppendMovesBalanceAndChains(t *testing.T) {
	h := newHarness(t)
	storeID := h.f.Store.ID

	first, err := h.append(t, AppendInput{StoreID: storeID, Type: enums.TransactionTypeCredit, Direction: enums.DirectionCredit, Field: enums.BalanceFieldSpendable, AmountCents: 10000})
	require.NoError(t, err)
	second, err := h.append(t, AppendInput{StoreID: storeID, Type: enums.TransactionTypePayout, Direction: enums.DirectionDebit, Field: enums.BalanceFieldSpendable, AmountCents: 2500, Status: enums.TransactionStatusPending})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, 0, first.BalanceBeforeCents)
	assert.Equal(t, 10000, first.BalanceAfterCents)
	assert.Equal(t, first.BalanceAfterCents, second.BalanceBeforeCents)
	assert.Equal(t, 7500, second.BalanceAfterCents)
	assert.Equal(t, enums.CurrencyXAF, second.Currency)
	assert.NotNil(t, first.CompletedAt)
	assert.Nil(t, second.CompletedAt)

	store := dbtest.Reload[models.Store](t, h.f.DB, storeID)
	assert.Equal(t, 7500, store.BalanceCents)
	assert.Equal(t, 0, store.PendingBalanceCents)
	assert.Equal(t, 2, h.metrics.entries)

	report, err := h.svc.Reconcile(context.Background(), storeID)
	require.NoError(t, err)
	assert.True(t, report.Healthy, "mismatches: %+v", report.Mismatches)
	assert.Equal(t, 0, h.metrics.drift[storeID.String()])
}

func TestAppendRejectsOverdraftWithoutWriting(t *testing.T) {
	h := newHarness(t)

	_, err := h.append(t, AppendInput{StoreID: h.f.Store.ID, Type: enums.TransactionTypeRefund, Direction: enums.DirectionDebit, Field: enums.BalanceFieldSpendable, AmountCents: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	var count int64
	h.f.DB.Model(&models.Transaction{}).Count(&count)
	assert.Zero(t, count)
}

func TestAppendValidatesInput(t *testing.T) {
	h := newHarness(t)
	cases := []AppendInput{
		{Type: enums.TransactionTypeSale, Direction: enums.DirectionCredit, Field: enums.BalanceFieldPending, AmountCents: 1},
		{StoreID: h.f.Store.ID, Type: "bonus", Direction: enums.DirectionCredit, Field: enums.BalanceFieldPending, AmountCents: 1},
		{StoreID: h.f.Store.ID, Type: enums.TransactionTypeSale, Direction: "up", Field: enums.BalanceFieldPending, AmountCents: 1},
		{StoreID: h.f.Store.ID, Type: enums.TransactionTypeSale, Direction: enums.DirectionCredit, Field: "escrow", AmountCents: 1},
		{StoreID: h.f.Store.ID, Type: enums.TransactionTypeSale, Direction: enums.DirectionCredit, Field: enums.BalanceFieldPending, AmountCents: 0},
	}
	for i, input := range cases {
		if _, err := h.append(t, input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	_, err := h.append(t, AppendInput{StoreID: uuid.New(), Type: enums.TransactionTypeSale, Direction: enums.DirectionCredit, Field: enums.BalanceFieldPending, AmountCents: 1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

type casLoser struct {
	Repository
}

func (c casLoser) WithTx(tx *gorm.DB) Repository { return casLoser{c.Repository.WithTx(tx)} }

func (casLoser) CompareAndSetBalance(context.Context, uuid.UUID, enums.BalanceField, int, int, time.Time) (bool, error) {
	return false, nil
}

func TestAppendLostUpdateIsConflict(t *testing.T) {
	f := dbtest.NewFixture(t)
	metrics := &countingMetrics{}
	svc, err := NewService(ServiceParams{
		Repository: casLoser{NewRepository(f.DB)},
		DB:         f.Client,
		Outbox:     outbox.NewService(outbox.NewRepository(f.DB), nil),
		Metrics:    metrics,
	})
	require.NoError(t, err)

	_, err = svc.Append(context.Background(), f.DB, AppendInput{StoreID: f.Store.ID, Type: enums.TransactionTypeSale, Direction: enums.DirectionCredit, Field: enums.BalanceFieldPending, AmountCents: 100})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, 1, metrics.conflicts)
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeConflict).Retryable)
}

func TestTransitionStatus(t *testing.T) {
	h := newHarness(t)
	storeID := h.f.Store.ID
	_, err := h.append(t, AppendInput{StoreID: storeID, Type: enums.TransactionTypeCredit, Direction: enums.DirectionCredit, Field: enums.BalanceFieldSpendable, AmountCents: 9000})
	require.NoError(t, err)
	pending, err := h.append(t, AppendInput{StoreID: storeID, Type: enums.TransactionTypePayout, Direction: enums.DirectionDebit, Field: enums.BalanceFieldSpendable, AmountCents: 6000, Status: enums.TransactionStatusPending})
	require.NoError(t, err)

	ctx := context.Background()
	done, err := h.svc.TransitionStatus(ctx, h.f.DB, pending.ID, enums.TransactionStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = h.svc.TransitionStatus(ctx, h.f.DB, pending.ID, enums.TransactionStatusCompleted)
	assert.NoError(t, err)

	_, err = h.svc.TransitionStatus(ctx, h.f.DB, pending.ID, enums.TransactionStatusFailed)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))

	_, err = h.svc.TransitionStatus(ctx, h.f.DB, uuid.New(), enums.TransactionStatusFailed)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	reloaded := dbtest.Reload[models.Transaction](t, h.f.DB, pending.ID)
	assert.Equal(t, enums.TransactionStatusCompleted, reloaded.Status)
	assert.Equal(t, 6000, reloaded.AmountCents)
}

func TestReconcileDetectsProjectionDrift(t *testing.T) {
	h := newHarness(t)
	storeID := h.f.Store.ID
	_, err := h.append(t, AppendInput{StoreID: storeID, Type: enums.TransactionTypeSale, Direction: enums.DirectionCredit, Field: enums.BalanceFieldPending, AmountCents: 9000})
	require.NoError(t, err)

	require.NoError(t, h.f.DB.Model(&models.Store{}).Where("id = ?", storeID).Update("pending_balance_cents", 9100).Error)

	report, err := h.svc.Reconcile(context.Background(), storeID)
	require.NoError(t, err)
	require.False(t, report.Healthy)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, MismatchProjection, report.Mismatches[0].Kind)
	assert.Equal(t, 9000, report.Mismatches[0].ExpectedCents)
	assert.Equal(t, 9100, report.Mismatches[0].ActualCents)
	assert.Equal(t, 1, h.metrics.drift[storeID.String()])
}

func TestVerifyChainFlagsBrokenEntries(t *testing.T) {
	store := models.Store{ID: uuid.New(), BalanceCents: 500}
	entries := []models.Transaction{
		{ID: uuid.New(), Sequence: 1, BalanceField: enums.BalanceFieldSpendable, Direction: enums.DirectionCredit, AmountCents: 1000, BalanceBeforeCents: 0, BalanceAfterCents: 1000},
		{ID: uuid.New(), Sequence: 2, BalanceField: enums.BalanceFieldSpendable, Direction: enums.DirectionDebit, AmountCents: 400, BalanceBeforeCents: 900, BalanceAfterCents: 500},
	}
	report := VerifyChain(store, entries)
	require.False(t, report.Healthy)
	kinds := map[MismatchKind]int{}
	for _, m := range report.Mismatches {
		kinds[m.Kind]++
	}
	assert.Equal(t, 1, kinds[MismatchChainBreak])
	assert.Equal(t, 0, kinds[MismatchProjection])
}

func TestReleasePendingMovesNetOnce(t *testing.T) {
	h := newHarness(t)
	storeID := h.f.Store.ID
	order := h.f.Delivered(t, h.now, 1, 9000)
	orderID := order.ID

	_, err := h.append(t, AppendInput{StoreID: storeID, Type: enums.TransactionTypeSale, Direction: enums.DirectionCredit, Field: enums.BalanceFieldPending, AmountCents: 9000, OrderID: &orderID})
	require.NoError(t, err)
	_, err = h.append(t, AppendInput{StoreID: storeID, Type: enums.TransactionTypeFee, Direction: enums.DirectionDebit, Field: enums.BalanceFieldPending, AmountCents: 450, OrderID: &orderID})
	require.NoError(t, err)

	ctx := context.Background()
	early, err := h.svc.ReleasePending(ctx, storeID, h.now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, early.Orders)

	h.now = h.now.Add(8 * 24 * time.Hour)
	result, err := h.svc.ReleasePending(ctx, storeID, h.now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ReleaseResult{Orders: 1, AmountCents: 8550}, result)

	store := dbtest.Reload[models.Store](t, h.f.DB, storeID)
	assert.Equal(t, 0, store.PendingBalanceCents)
	assert.Equal(t, 8550, store.BalanceCents)

	again, err := h.svc.ReleasePending(ctx, storeID, h.now)
	require.NoError(t, err)
	assert.Zero(t, again.Orders)

	events, err := outbox.NewRepository(h.f.DB).ListByAggregate(ctx, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventPendingReleased, events[0].EventType)

	report, err := h.svc.Reconcile(ctx, storeID)
	require.NoError(t, err)
	assert.True(t, report.Healthy)
}

func (h *harness) bookSale(t *testing.T, order models.Order, feeCents int) {
	t.Helper()
	orderID := order.ID
	_, err := h.append(t, AppendInput{StoreID: order.StoreID, Type: enums.TransactionTypeSale, Direction: enums.DirectionCredit, Field: enums.BalanceFieldPending, AmountCents: order.TotalCents, OrderID: &orderID})
	require.NoError(t, err)
	_, err = h.append(t, AppendInput{StoreID: order.StoreID, Type: enums.TransactionTypeFee, Direction: enums.DirectionDebit, Field: enums.BalanceFieldPending, AmountCents: feeCents, OrderID: &orderID})
	require.NoError(t, err)
}

func (h *harness) refund(t *testing.T, order models.Order, amount int) []*models.Transaction {
	t.Helper()
	var entries []*models.Transaction
	require.NoError(t, h.f.Client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		entries, err = h.svc.RefundOrder(context.Background(), tx, RefundInput{
			StoreID:     order.StoreID,
			OrderID:     order.ID,
			AmountCents: amount,
			Description: "refund",
		})
		return err
	}))
	return entries
}

func TestReleasePendingAfterRefunds(t *testing.T) {
	tests := []struct {
		name      string
		refund    int
		credit    int
		legs      []enums.BalanceField
		released  ReleaseResult
		pending   int
		spendable int
	}{
		{
			name:      "partial refund releases the remainder",
			refund:    3000,
			legs:      []enums.BalanceField{enums.BalanceFieldPending},
			released:  ReleaseResult{Orders: 1, AmountCents: 5550},
			spendable: 5550,
		},
		{
			name:      "full refund leaves nothing to release",
			refund:    9000,
			credit:    1000,
			legs:      []enums.BalanceField{enums.BalanceFieldPending, enums.BalanceFieldSpendable},
			spendable: 550,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			storeID := h.f.Store.ID
			if tt.credit > 0 {
				_, err := h.append(t, AppendInput{StoreID: storeID, Type: enums.TransactionTypeCredit, Direction: enums.DirectionCredit, Field: enums.BalanceFieldSpendable, AmountCents: tt.credit})
				require.NoError(t, err)
			}
			order := h.f.Delivered(t, h.now, 1, 9000)
			h.bookSale(t, order, 450)

			entries := h.refund(t, order, tt.refund)
			require.Len(t, entries, len(tt.legs))
			total := 0
			for i, entry := range entries {
				assert.Equal(t, tt.legs[i], entry.BalanceField)
				assert.Equal(t, enums.TransactionTypeRefund, entry.Type)
				total += entry.AmountCents
			}
			assert.Equal(t, tt.refund, total)

			h.now = h.now.Add(8 * 24 * time.Hour)
			result, err := h.svc.ReleasePending(ctx, storeID, h.now.Add(-7*24*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, tt.released, result)

			store := dbtest.Reload[models.Store](t, h.f.DB, storeID)
			assert.Equal(t, tt.pending, store.PendingBalanceCents)
			assert.Equal(t, tt.spendable, store.BalanceCents)

			report, err := h.svc.Reconcile(ctx, storeID)
			require.NoError(t, err)
			assert.True(t, report.Healthy)
		})
	}
}

func TestReleasePendingVoidsCancelledHold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	storeID := h.f.Store.ID
	order := h.f.Delivered(t, h.now, 1, 9000)
	h.bookSale(t, order, 450)
	dbtest.Must(t, h.f.DB.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
		"status":         enums.OrderStatusCancelled,
		"payment_status": enums.PaymentStatusRefunded,
	}).Error)

	h.now = h.now.Add(8 * 24 * time.Hour)
	result, err := h.svc.ReleasePending(ctx, storeID, h.now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ReleaseResult{Voided: 1, VoidedCents: 8550}, result)

	store := dbtest.Reload[models.Store](t, h.f.DB, storeID)
	assert.Equal(t, 0, store.PendingBalanceCents)
	assert.Equal(t, 0, store.BalanceCents)

	again, err := h.svc.ReleasePending(ctx, storeID, h.now)
	require.NoError(t, err)
	assert.Equal(t, ReleaseResult{}, again)

	events, err := outbox.NewRepository(h.f.DB).ListByAggregate(ctx, enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	assert.Empty(t, events)

	report, err := h.svc.Reconcile(ctx, storeID)
	require.NoError(t, err)
	assert.True(t, report.Healthy)
}

func TestRefundOrderRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	order := h.f.Delivered(t, h.now, 1, 9000)
	err := h.f.Client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := h.svc.RefundOrder(context.Background(), tx, RefundInput{StoreID: order.StoreID, OrderID: order.ID})
		return err
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "zero amount: %v", err)

	err = h.f.Client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := h.svc.RefundOrder(context.Background(), tx, RefundInput{StoreID: order.StoreID, OrderID: order.ID, AmountCents: 100})
		return err
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance), "no hold and no balance: %v", err)
}

func TestListByStorePaginates(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.now = h.now.Add(time.Minute)
		_, err := h.append(t, AppendInput{StoreID: h.f.Store.ID, Type: enums.TransactionTypeCredit, Direction: enums.DirectionCredit, Field: enums.BalanceFieldSpendable, AmountCents: 100 * (i + 1)})
		require.NoError(t, err)
	}

	ctx := context.Background()
	page, err := h.svc.ListByStore(ctx, h.f.Store.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Items[0].Sequence)
	require.NotEmpty(t, page.NextCursor)

	next, err := h.svc.ListByStore(ctx, h.f.Store.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, int64(1), next.Items[0].Sequence)
	assert.Empty(t, next.NextCursor)

	_, err = h.svc.ListByStore(ctx, h.f.Store.ID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
