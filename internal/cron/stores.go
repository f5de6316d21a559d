package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const storeBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type activeStoreLister interface {
	ListActiveIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

// heldStoreLister lists stores with a non-zero pending balance, including
// deactivated ones.
type heldStoreLister interface {
	ListHeldIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type storePage func(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)

// eachActiveStore pages through active stores in id order. visit records its
// own failures so one bad store never stops the scan.
func eachActiveStore(ctx context.Context, lister activeStoreLister, visit func(storeID uuid.UUID)) error {
	return eachStore(ctx, "active", lister.ListActiveIDs, visit)
}

func eachHeldStore(ctx context.Context, lister heldStoreLister, visit func(storeID uuid.UUID)) error {
	return eachStore(ctx, "held", lister.ListHeldIDs, visit)
}

func eachStore(ctx context.Context, kind string, page storePage, visit func(storeID uuid.UUID)) error {
	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ids, err := page(ctx, after, storeBatchSize)
		if err != nil {
			return fmt.Errorf("list %s stores: %w", kind, err)
		}
		for _, id := range ids {
			visit(id)
		}
		if len(ids) < storeBatchSize {
			return nil
		}
		after = ids[len(ids)-1]
	}
}
