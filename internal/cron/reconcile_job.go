package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type ledgerReconciler interface {
	Reconcile(ctx context.Context, storeID uuid.UUID) (*ledger.ReconcileReport, error)
}

type ReconcileJobParams struct {
	Logger *logger.Logger
	Stores activeStoreLister
	Ledger ledgerReconciler
}

// NewReconcileJob replays every active store's ledger. Drift is reported
// through the ledger drift gauge and logs; it does not fail the job.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store lister required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &reconcileJob{logg: params.Logger, stores: params.Stores, ledger: params.Ledger}, nil
}

type reconcileJob struct {
	logg   *logger.Logger
	stores activeStoreLister
	ledger ledgerReconciler
}

func (j *reconcileJob) Name() string { return "ledger-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	var errs error
	checked, unhealthy := 0, 0
	scanErr := eachActiveStore(ctx, j.stores, func(storeID uuid.UUID) {
		report, err := j.ledger.Reconcile(ctx, storeID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile store %s: %w", storeID, err))
			return
		}
		checked++
		if !report.Healthy {
			unhealthy++
		}
	})
	errs = multierr.Append(errs, scanErr)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stores_checked":   checked,
		"stores_unhealthy": unhealthy,
	})
	if unhealthy > 0 {
		j.logg.Warn(logCtx, "ledger reconciliation found unhealthy stores")
	} else {
		j.logg.Info(logCtx, "ledger reconciliation complete")
	}
	return errs
}
