package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultOutboxAttempts  = 10
	defaultPruneBatch      = 500
)

type outboxPruner interface {
	Prune(ctx context.Context, tx *gorm.DB, filter outbox.PruneFilter) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPruner
	// Retention is the age after which published events are deleted.
	Retention time.Duration
	// MaxAttempts must equal the publisher's so only dead-lettered rows are
	// pruned among the unpublished ones.
	MaxAttempts int
	// BatchSize caps the rows deleted per transaction.
	BatchSize int
}

// NewOutboxRetentionJob prunes the outbox table in short transactions so a
// large backlog never holds one long delete lock.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("outbox retention: logger required")
	case params.DB == nil:
		return nil, errors.New("outbox retention: db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox retention: repository required")
	}
	job := &outboxRetentionJob{
		logg: params.Logger,
		db:   params.DB,
		repo: params.Repository,
		filter: outbox.PruneFilter{
			MaxAttempts: orDefault(params.MaxAttempts, defaultOutboxAttempts),
			Limit:       orDefault(params.BatchSize, defaultPruneBatch),
		},
		retention: params.Retention,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	return job, nil
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxPruner
	filter    outbox.PruneFilter
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	filter := j.filter
	filter.Cutoff = j.now().UTC().Add(-j.retention)

	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			deleted, err = j.repo.Prune(ctx, tx, filter)
			return err
		})
		if err != nil {
			return fmt.Errorf("prune outbox: %w", err)
		}
		total += deleted
		batches++
		if deleted < int64(filter.Limit) {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       filter.Cutoff,
		"rows_deleted": total,
		"batches":      batches,
	}), "outbox retention cleanup complete")
	return nil
}
