package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const defaultPendingHold = 7 * 24 * time.Hour

type pendingReleaser interface {
	ReleasePending(ctx context.Context, storeID uuid.UUID, cutoff time.Time) (ledger.ReleaseResult, error)
}

type PendingReleaseJobParams struct {
	Logger *logger.Logger
	Stores heldStoreLister
	Ledger pendingReleaser
	// Hold is how long sale proceeds stay pending after payment.
	Hold time.Duration
}

func NewPendingReleaseJob(params PendingReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store lister required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	hold := params.Hold
	if hold <= 0 {
		hold = defaultPendingHold
	}
	return &pendingReleaseJob{
		logg:   params.Logger,
		stores: params.Stores,
		ledger: params.Ledger,
		hold:   hold,
		now:    time.Now,
	}, nil
}

type pendingReleaseJob struct {
	logg   *logger.Logger
	stores heldStoreLister
	ledger pendingReleaser
	hold   time.Duration
	now    func() time.Time
}

func (j *pendingReleaseJob) Name() string { return "pending-release" }

func (j *pendingReleaseJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.hold)
	var errs error
	var stores, orders, amount, voided int
	scanErr := eachHeldStore(ctx, j.stores, func(storeID uuid.UUID) {
		res, err := j.ledger.ReleasePending(ctx, storeID, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release store %s: %w", storeID, err))
			return
		}
		stores++
		orders += res.Orders
		amount += res.AmountCents
		voided += res.Voided
	})
	errs = multierr.Append(errs, scanErr)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"stores":       stores,
		"orders":       orders,
		"amount_cents": amount,
		"voided":       voided,
	})
	j.logg.Info(logCtx, "pending release loop complete")
	return errs
}
