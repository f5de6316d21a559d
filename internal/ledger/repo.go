package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository persists ledger entries and the store balance projection.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	NextSequence(ctx context.Context, storeID uuid.UUID) (int64, error)
	CompareAndSetBalance(ctx context.Context, storeID uuid.UUID, field enums.BalanceField, expected, next int, at time.Time) (bool, error)
	Create(ctx context.Context, entry *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, at time.Time) (bool, error)
	ListChain(ctx context.Context, storeID uuid.UUID) ([]models.Transaction, error)
	ListPage(ctx context.Context, storeID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Transaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error)
	ReleaseCandidates(ctx context.Context, storeID uuid.UUID, cutoff time.Time) ([]ReleaseCandidate, error)
	OrderHold(ctx context.Context, orderID uuid.UUID) (OrderHold, error)
}

// OrderHold is what one order contributed to the pending balance.
type OrderHold struct {
	SaleCents int
	FeeCents  int
	// RefundedCents counts refunds already taken out of the hold.
	RefundedCents int
	Released      bool
}

// HeldCents is the part of the sale still sitting on the pending balance.
func (h OrderHold) HeldCents() int {
	if h.Released {
		return 0
	}
	if held := h.SaleCents - h.FeeCents - h.RefundedCents; held > 0 {
		return held
	}
	return 0
}

// ReleaseCandidate is a settled order whose sale is still held on the
// pending balance. Cancelled marks orders whose payment was refunded by a
// cancellation; their hold is voided instead of released.
type ReleaseCandidate struct {
	OrderID   uuid.UUID
	Currency  enums.Currency
	Cancelled bool
	Hold      OrderHold
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) NextSequence(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var current int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("store_id = ?", storeID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&current).Error
	return current + 1, err
}

// CompareAndSetBalance moves field from expected to next. It reports false
// when the stored value no longer equals expected.
func (r *repository) CompareAndSetBalance(ctx context.Context, storeID uuid.UUID, field enums.BalanceField, expected, next int, at time.Time) (bool, error) {
	column := field.Column()
	res := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ? AND "+column+" = ?", storeID, expected).
		UpdateColumns(map[string]any{column: next, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Create(ctx context.Context, entry *models.Transaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var entry models.Transaction
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	if to == enums.TransactionStatusCompleted {
		updates["completed_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListChain(ctx context.Context, storeID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("sequence ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListPage(ctx context.Context, storeID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Scopes(pagination.Keyset(cursor, limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("sequence ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ReleaseCandidates(ctx context.Context, storeID uuid.UUID, cutoff time.Time) ([]ReleaseCandidate, error) {
	var rows []struct {
		OrderID     uuid.UUID
		Currency    enums.Currency
		OrderStatus enums.OrderStatus
	}
	err := r.db.WithContext(ctx).
		Table("transactions AS t").
		Select("t.order_id AS order_id, t.currency AS currency, o.status AS order_status").
		Joins("JOIN orders o ON o.id = t.order_id").
		Where("t.store_id = ? AND t.type = ? AND t.balance_field = ? AND t.created_at < ?", storeID, enums.TransactionTypeSale, enums.BalanceFieldPending, cutoff).
		Where("o.payment_status IN ?", []enums.PaymentStatus{enums.PaymentStatusPaid, enums.PaymentStatusRefunded}).
		Where("NOT EXISTS (SELECT 1 FROM transactions rel WHERE rel.order_id = t.order_id AND rel.type = ?)", enums.TransactionTypeRelease).
		Order("t.sequence ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	orderIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.OrderID)
	}
	holds, err := r.holds(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ReleaseCandidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, ReleaseCandidate{
			OrderID:   row.OrderID,
			Currency:  row.Currency,
			Cancelled: row.OrderStatus == enums.OrderStatusCancelled,
			Hold:      holds[row.OrderID],
		})
	}
	return out, nil
}

func (r *repository) OrderHold(ctx context.Context, orderID uuid.UUID) (OrderHold, error) {
	holds, err := r.holds(ctx, []uuid.UUID{orderID})
	if err != nil {
		return OrderHold{}, err
	}
	return holds[orderID], nil
}

// holds sums each order's pending-balance entries by type.
func (r *repository) holds(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]OrderHold, error) {
	var sums []struct {
		OrderID uuid.UUID
		Type    enums.TransactionType
		Total   int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("order_id, type, COALESCE(SUM(amount_cents), 0) AS total").
		Where("order_id IN ? AND balance_field = ?", orderIDs, enums.BalanceFieldPending).
		Group("order_id, type").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]OrderHold, len(orderIDs))
	for _, sum := range sums {
		hold := out[sum.OrderID]
		switch sum.Type {
		case enums.TransactionTypeSale:
			hold.SaleCents += sum.Total
		case enums.TransactionTypeFee:
			hold.FeeCents += sum.Total
		case enums.TransactionTypeRefund:
			hold.RefundedCents += sum.Total
		case enums.TransactionTypeRelease:
			hold.Released = true
		}
		out[sum.OrderID] = hold
	}
	return out, nil
}
