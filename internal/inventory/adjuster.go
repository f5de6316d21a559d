// Package inventory moves stock for order lines. It only ever writes the
// quantity, availability and status columns of catalog rows.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// Line is one stock movement. VariantID selects the variant stock instead of
// the product's.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// Adjuster decrements and restores stock inside the caller's transaction.
type Adjuster interface {
	Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error
	Restore(ctx context.Context, tx *gorm.DB, lines []Line) error
}

type adjuster struct{}

func NewAdjuster() Adjuster {
	return adjuster{}
}

// Decrement expects sufficiency to be validated by the caller. The update is
// still guarded so a concurrent sale fails with InsufficientStock instead of
// driving quantity negative.
func (adjuster) Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if line.VariantID != nil {
			if err := decrementVariant(ctx, tx, *line.VariantID, line.Quantity); err != nil {
				return err
			}
			continue
		}
		if err := decrementProduct(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (adjuster) Restore(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if line.VariantID != nil {
			if err := restoreVariant(ctx, tx, *line.VariantID, line.Quantity); err != nil {
				return err
			}
			continue
		}
		if err := restoreProduct(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func decrementVariant(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	res := tx.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND quantity >= ?", variantID, qty).
		Updates(map[string]any{
			"quantity":     gorm.Expr("quantity - ?", qty),
			"is_available": gorm.Expr("quantity - ? > 0", qty),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement variant stock")
	}
	if res.RowsAffected == 0 {
		return insufficient(ctx, tx, &models.ProductVariant{}, variantID, "variant")
	}
	return nil
}

func restoreVariant(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	res := tx.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Updates(map[string]any{
			"quantity":     gorm.Expr("quantity + ?", qty),
			"is_available": gorm.Expr("quantity + ? > 0", qty),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore variant stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return nil
}

func decrementProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	tracked, err := tracksInventory(ctx, tx, productID)
	if err != nil || !tracked {
		return err
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", productID, qty).
		Updates(map[string]any{
			"quantity": gorm.Expr("quantity - ?", qty),
			"status": gorm.Expr("CASE WHEN quantity - ? = 0 AND status = ? THEN ? ELSE status END",
				qty, enums.ProductStatusActive, enums.ProductStatusOutOfStock),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement product stock")
	}
	if res.RowsAffected == 0 {
		return insufficient(ctx, tx, &models.Product{}, productID, "product")
	}
	return nil
}

func restoreProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	tracked, err := tracksInventory(ctx, tx, productID)
	if err != nil || !tracked {
		return err
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"quantity": gorm.Expr("quantity + ?", qty),
			"status": gorm.Expr("CASE WHEN quantity = 0 AND status = ? THEN ? ELSE status END",
				enums.ProductStatusOutOfStock, enums.ProductStatusActive),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore product stock")
	}
	return nil
}

func tracksInventory(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (bool, error) {
	var product models.Product
	err := tx.WithContext(ctx).Select("id", "track_inventory").First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product.TrackInventory, nil
}

func insufficient(ctx context.Context, tx *gorm.DB, model any, id uuid.UUID, label string) error {
	var count int64
	if err := tx.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+label)
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, label+" not found")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s %s", label, id))
}
