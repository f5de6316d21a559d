package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

func TestFee(t *testing.T) {
	tests := []struct {
		method enums.PayoutMethod
		amount int
		want   int
	}{
		{enums.PayoutMethodMobileMoney, 100000, 1000},
		{enums.PayoutMethodMobileMoney, 5000, 100},
		{enums.PayoutMethodBankTransfer, 10000, 500},
		{enums.PayoutMethodBankTransfer, 100000, 1500},
		{enums.PayoutMethodPayPal, 5025, 101},
		{enums.PayoutMethodPayPal, 5000, 100},
		{enums.PayoutMethod("crypto"), 100000, 0},
	}
	for _, tt := range tests {
		if got := Fee(tt.method, tt.amount); got != tt.want {
			t.Fatalf("Fee(%s, %d) = %d, want %d", tt.method, tt.amount, got, tt.want)
		}
	}
}

type harness struct {
	f      *dbtest.Fixture
	ledger ledger.Service
	svc    Service
	owner  types.Actor
	now    time.Time
}

func newHarness(t *testing.T, balance int) *harness {
	t.Helper()
	f := dbtest.NewFixture(t)
	h := &harness{
		f:     f,
		owner: types.Actor{UserID: f.OwnerID, Kind: enums.ActorVendor, StoreID: &f.Store.ID},
		now:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	emitter := outbox.NewService(outbox.NewRepository(f.DB), nil)
	var err error
	h.ledger, err = ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(f.DB),
		DB:         f.Client,
		Outbox:     emitter,
		Now:        clock,
	})
	require.NoError(t, err)
	h.svc, err = NewService(ServiceParams{
		Repository: NewRepository(f.DB),
		Stores:     stores.NewRepository(f.DB),
		Ledger:     h.ledger,
		DB:         f.Client,
		Outbox:     emitter,
		Now:        clock,
	})
	require.NoError(t, err)

	if balance > 0 {
		err = f.Client.WithTx(context.Background(), func(tx *gorm.DB) error {
			_, err := h.ledger.Append(context.Background(), tx, ledger.AppendInput{
				StoreID:     f.Store.ID,
				Type:        enums.TransactionTypeCredit,
				Direction:   enums.DirectionCredit,
				Field:       enums.BalanceFieldSpendable,
				AmountCents: balance,
				Description: "opening balance",
			})
			return err
		})
		require.NoError(t, err)
	}
	return h
}

func (h *harness) request(amount int) (*models.Payout, error) {
	return h.svc.Request(context.Background(), RequestPayoutInput{
		StoreID:     h.f.Store.ID,
		Actor:       h.owner,
		AmountCents: amount,
		Method:      enums.PayoutMethodMobileMoney,
		Destination: map[string]string{"phone": "+237600000002"},
	})
}

func (h *harness) balance(t *testing.T) int {
	t.Helper()
	return dbtest.Reload[models.Store](t, h.f.DB, h.f.Store.ID).BalanceCents
}

func (h *harness) entries(t *testing.T) int64 {
	t.Helper()
	var n int64
	dbtest.Must(t, h.f.DB.Model(&models.Transaction{}).Count(&n).Error)
	return n
}

func TestRequestDebitsGrossAndQueuesNet(t *testing.T) {
	h := newHarness(t, 200000)

	payout, err := h.request(100000)
	require.NoError(t, err)
	assert.Equal(t, 1000, payout.FeeCents)
	assert.Equal(t, 99000, payout.NetCents)
	assert.Equal(t, enums.PayoutStatusPending, payout.Status)
	assert.Equal(t, 100000, h.balance(t))

	entry := dbtest.Reload[models.Transaction](t, h.f.DB, payout.TransactionID)
	assert.Equal(t, enums.TransactionStatusPending, entry.Status)
	assert.Equal(t, enums.TransactionTypePayout, entry.Type)
	require.NotNil(t, entry.PayoutID)
	assert.Equal(t, payout.ID, *entry.PayoutID)

	var events []models.OutboxEvent
	dbtest.Must(t, h.f.DB.Where("event_type = ?", enums.EventPayoutRequested).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Contains(t, string(events[0].Payload), `"net_cents":99000`)
	assert.Contains(t, string(events[0].Payload), "+237600000002")
}

func TestRequestGuards(t *testing.T) {
	h := newHarness(t, 20000)

	_, err := h.request(4999)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "floor: %v", err)

	_, err = h.request(20001)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance), "balance: %v", err)
	assert.Equal(t, int64(1), h.entries(t))
	assert.Equal(t, 20000, h.balance(t))

	stranger := types.Actor{UserID: uuid.New(), Kind: enums.ActorVendor}
	_, err = h.svc.Request(context.Background(), RequestPayoutInput{StoreID: h.f.Store.ID, Actor: stranger, AmountCents: 6000, Method: enums.PayoutMethodPayPal})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "owner: %v", err)

	_, err = h.svc.Request(context.Background(), RequestPayoutInput{StoreID: h.f.Store.ID, Actor: h.owner, AmountCents: 6000})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "method: %v", err)
}

func TestProcessingPayoutBlocksNewRequests(t *testing.T) {
	h := newHarness(t, 50000)
	ctx := context.Background()

	first, err := h.request(10000)
	require.NoError(t, err)
	outcome, err := h.svc.MarkProcessing(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeApplied, outcome)

	outcome, err = h.svc.MarkProcessing(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeAlreadyProcessed, outcome)

	_, err = h.request(10000)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestConfirmStartsCooldown(t *testing.T) {
	h := newHarness(t, 50000)
	ctx := context.Background()

	payout, err := h.request(10000)
	require.NoError(t, err)
	outcome, err := h.svc.Confirm(ctx, ConfirmPayoutInput{PayoutID: payout.ID, ExternalReference: "trf_1"})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeApplied, outcome)

	stored := dbtest.Reload[models.Payout](t, h.f.DB, payout.ID)
	assert.Equal(t, enums.PayoutStatusCompleted, stored.Status)
	require.NotNil(t, stored.ExternalReference)
	assert.Equal(t, "trf_1", *stored.ExternalReference)
	assert.Equal(t, enums.TransactionStatusCompleted, dbtest.Reload[models.Transaction](t, h.f.DB, payout.TransactionID).Status)

	outcome, err = h.svc.Confirm(ctx, ConfirmPayoutInput{PayoutID: payout.ID, ExternalReference: "trf_1"})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeAlreadyProcessed, outcome)

	outcome, err = h.svc.Fail(ctx, FailPayoutInput{PayoutID: payout.ID, Reason: "late"})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeAlreadyProcessed, outcome)
	assert.Equal(t, 40000, h.balance(t))

	h.now = h.now.Add(23 * time.Hour)
	_, err = h.request(10000)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "cooldown: %v", err)

	h.now = h.now.Add(2 * time.Hour)
	_, err = h.request(10000)
	require.NoError(t, err)
	assert.Equal(t, 30000, h.balance(t))
}

func TestFailReversesDebit(t *testing.T) {
	h := newHarness(t, 50000)
	ctx := context.Background()

	payout, err := h.request(20000)
	require.NoError(t, err)
	_, err = h.svc.MarkProcessing(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, 30000, h.balance(t))

	outcome, err := h.svc.Fail(ctx, FailPayoutInput{PayoutID: payout.ID, Reason: "account closed"})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeApplied, outcome)
	assert.Equal(t, 50000, h.balance(t))

	stored := dbtest.Reload[models.Payout](t, h.f.DB, payout.ID)
	assert.Equal(t, enums.PayoutStatusFailed, stored.Status)
	require.NotNil(t, stored.ReversalTransactionID)
	reversal := dbtest.Reload[models.Transaction](t, h.f.DB, *stored.ReversalTransactionID)
	require.NotNil(t, reversal.ReversesID)
	assert.Equal(t, payout.TransactionID, *reversal.ReversesID)
	assert.Equal(t, enums.TransactionTypeCredit, reversal.Type)
	assert.Equal(t, enums.TransactionStatusFailed, dbtest.Reload[models.Transaction](t, h.f.DB, payout.TransactionID).Status)

	outcome, err = h.svc.Fail(ctx, FailPayoutInput{PayoutID: payout.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeAlreadyProcessed, outcome)
	assert.Equal(t, 50000, h.balance(t))

	_, err = h.svc.Confirm(ctx, ConfirmPayoutInput{PayoutID: payout.ID})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	report, err := h.ledger.Reconcile(ctx, h.f.Store.ID)
	require.NoError(t, err)
	assert.True(t, report.Healthy)
}

func TestListPayouts(t *testing.T) {
	h := newHarness(t, 50000)
	ctx := context.Background()

	first, err := h.request(10000)
	require.NoError(t, err)
	_, err = h.svc.Fail(ctx, FailPayoutInput{PayoutID: first.ID})
	require.NoError(t, err)
	h.now = h.now.Add(time.Minute)
	second, err := h.request(10000)
	require.NoError(t, err)

	page, err := h.svc.List(ctx, h.f.Store.ID, h.owner, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, second.ID, page.Items[0].ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = h.svc.List(ctx, h.f.Store.ID, h.owner, pagination.Params{Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	_, err = h.svc.List(ctx, h.f.Store.ID, types.Actor{UserID: uuid.New(), Kind: enums.ActorCustomer}, pagination.Params{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.MarkProcessing(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
