package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	HasProcessing(ctx context.Context, storeID uuid.UUID) (bool, error)
	LastCompletedAt(ctx context.Context, storeID uuid.UUID) (*time.Time, error)
	UpdateIfStatus(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (bool, error)
	ListPage(ctx context.Context, storeID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Payout, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) HasProcessing(ctx context.Context, storeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("store_id = ? AND status = ?", storeID, enums.PayoutStatusProcessing).
		Count(&count).Error
	return count > 0, err
}

// LastCompletedAt returns when the store's most recent payout completed, or
// nil when none has.
func (r *repository) LastCompletedAt(ctx context.Context, storeID uuid.UUID) (*time.Time, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ? AND completed_at IS NOT NULL", storeID, enums.PayoutStatusCompleted).
		Order("completed_at DESC").
		First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payout.CompletedAt, nil
}

func (r *repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListPage(ctx context.Context, storeID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Payout, error) {
	var rows []models.Payout
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Scopes(pagination.Keyset(cursor, limit)).
		Find(&rows).Error
	return rows, err
}
