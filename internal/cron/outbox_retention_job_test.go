package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
)

// fakeOutboxPruner hands out the queued batch sizes in order, then zero.
type fakeOutboxPruner struct {
	batches []int64
	filters []outbox.PruneFilter
	err     error
}

func (f *fakeOutboxPruner) Prune(_ context.Context, _ *gorm.DB, filter outbox.PruneFilter) (int64, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func newRetentionJob(t *testing.T, repo *fakeOutboxPruner, attempts, batch int) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		DB:          passthroughTx{},
		Repository:  repo,
		MaxAttempts: attempts,
		BatchSize:   batch,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionJobUsesThirtyDayCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{batches: []int64{4}}
	job := newRetentionJob(t, repo, 12, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.filters) != 1 {
		t.Fatalf("expected a single batch, got %d", len(repo.filters))
	}
	got := repo.filters[0]
	if want := now.Add(-30 * 24 * time.Hour); !got.Cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, got.Cutoff)
	}
	if got.MaxAttempts != 12 || got.Limit != defaultPruneBatch {
		t.Fatalf("unexpected filter %+v", got)
	}
}

func TestOutboxRetentionJobDrainsFullBatches(t *testing.T) {
	repo := &fakeOutboxPruner{batches: []int64{3, 3, 1}}
	job := newRetentionJob(t, repo, 0, 3)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.filters) != 3 {
		t.Fatalf("expected three batches, got %d", len(repo.filters))
	}
	if repo.filters[0].MaxAttempts != defaultOutboxAttempts {
		t.Fatalf("expected default attempts, got %d", repo.filters[0].MaxAttempts)
	}
}

func TestOutboxRetentionJobStopsOnCancel(t *testing.T) {
	repo := &fakeOutboxPruner{batches: []int64{3, 3, 3}}
	job := newRetentionJob(t, repo, 0, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(repo.filters) != 0 {
		t.Fatalf("expected no batches after cancel, got %d", len(repo.filters))
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	job := newRetentionJob(t, &fakeOutboxPruner{err: boom}, 0, 0)
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}
