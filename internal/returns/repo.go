package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	HasOpen(ctx context.Context, orderID uuid.UUID) (bool, error)
	ReturnedQuantities(ctx context.Context, orderID uuid.UUID, statuses []enums.ReturnStatus) (map[uuid.UUID]int, error)
	UpdateIfStatus(ctx context.Context, id uuid.UUID, from enums.ReturnStatus, updates map[string]any) (bool, error)
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

func (r *repository) Create(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// HasOpen reports whether the order already has a return in flight.
func (r *repository) HasOpen(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("order_id = ? AND status IN ?", orderID, enums.OpenReturnStatuses()).
		Count(&count).Error
	return count > 0, err
}

// ReturnedQuantities sums, per order line, the units already claimed by the
// order's returns in the given statuses.
func (r *repository) ReturnedQuantities(ctx context.Context, orderID uuid.UUID, statuses []enums.ReturnStatus) (map[uuid.UUID]int, error) {
	var rows []struct {
		OrderItemID uuid.UUID
		Quantity    int
	}
	err := r.db.WithContext(ctx).
		Table("return_items AS ri").
		Select("ri.order_item_id AS order_item_id, COALESCE(SUM(ri.quantity), 0) AS quantity").
		Joins("JOIN return_requests rr ON rr.id = ri.return_id").
		Where("rr.order_id = ? AND rr.status IN ?", orderID, statuses).
		Group("ri.order_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.OrderItemID] = row.Quantity
	}
	return out, nil
}

func (r *repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, from enums.ReturnStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
