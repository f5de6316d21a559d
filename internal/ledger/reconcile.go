package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type MismatchKind string

const (
	// MismatchChainBreak means an entry does not start where the previous
	// entry on the same field ended.
	MismatchChainBreak MismatchKind = "chain_break"
	// MismatchArithmetic means before +/- amount does not give after.
	MismatchArithmetic MismatchKind = "arithmetic"
	// MismatchProjection means the store column disagrees with the ledger.
	MismatchProjection MismatchKind = "projection_drift"
)

type Mismatch struct {
	Kind          MismatchKind       `json:"kind"`
	Field         enums.BalanceField `json:"balance_field"`
	EntryID       *uuid.UUID         `json:"entry_id,omitempty"`
	Sequence      int64              `json:"sequence,omitempty"`
	ExpectedCents int                `json:"expected_cents"`
	ActualCents   int                `json:"actual_cents"`
}

type FieldReport struct {
	Field       enums.BalanceField `json:"balance_field"`
	Entries     int                `json:"entries"`
	LedgerCents int                `json:"ledger_cents"`
	StoredCents int                `json:"stored_cents"`
}

// ReconcileReport is the result of replaying a store's ledger.
type ReconcileReport struct {
	StoreID    uuid.UUID     `json:"store_id"`
	CheckedAt  time.Time     `json:"checked_at"`
	Entries    int           `json:"entries"`
	Fields     []FieldReport `json:"fields"`
	Mismatches []Mismatch    `json:"mismatches"`
	Healthy    bool          `json:"healthy"`
}

func (s *service) Reconcile(ctx context.Context, storeID uuid.UUID) (*ReconcileReport, error) {
	store, err := s.repo.FindStore(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	entries, err := s.repo.ListChain(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger chain")
	}

	report := VerifyChain(*store, entries)
	report.CheckedAt = s.now().UTC()

	if s.metrics != nil {
		s.metrics.SetDrift(storeID.String(), len(report.Mismatches))
	}
	if !report.Healthy {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"store_id":   storeID.String(),
			"mismatches": len(report.Mismatches),
		})
		s.logg.Warn(logCtx, "ledger reconciliation found drift")
	}
	return report, nil
}

// VerifyChain replays entries, which must be ordered by sequence, against
// the store's projected balances.
func VerifyChain(store models.Store, entries []models.Transaction) *ReconcileReport {
	report := &ReconcileReport{StoreID: store.ID, Entries: len(entries), Mismatches: []Mismatch{}}

	running := map[enums.BalanceField]int{}
	counts := map[enums.BalanceField]int{}
	for _, entry := range entries {
		field := entry.BalanceField
		id := entry.ID
		expectedBefore := running[field]
		if entry.BalanceBeforeCents != expectedBefore {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Kind:          MismatchChainBreak,
				Field:         field,
				EntryID:       &id,
				Sequence:      entry.Sequence,
				ExpectedCents: expectedBefore,
				ActualCents:   entry.BalanceBeforeCents,
			})
		}
		if want := entry.Direction.Apply(entry.BalanceBeforeCents, entry.AmountCents); want != entry.BalanceAfterCents {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Kind:          MismatchArithmetic,
				Field:         field,
				EntryID:       &id,
				Sequence:      entry.Sequence,
				ExpectedCents: want,
				ActualCents:   entry.BalanceAfterCents,
			})
		}
		running[field] = entry.BalanceAfterCents
		counts[field]++
	}

	for _, field := range enums.BalanceFields() {
		stored := store.Balance(field)
		report.Fields = append(report.Fields, FieldReport{
			Field:       field,
			Entries:     counts[field],
			LedgerCents: running[field],
			StoredCents: stored,
		})
		if stored != running[field] {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Kind:          MismatchProjection,
				Field:         field,
				ExpectedCents: running[field],
				ActualCents:   stored,
			})
		}
	}
	report.Healthy = len(report.Mismatches) == 0
	return report
}
