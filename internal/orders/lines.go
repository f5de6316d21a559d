package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type lineKey struct {
	productID uuid.UUID
	variantID uuid.UUID
}

// aggregateItems merges repeated product/variant pairs so stock is checked
// against the combined quantity. First-seen order is kept.
func aggregateItems(items []ItemInput) ([]ItemInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	index := make(map[lineKey]int, len(items))
	out := make([]ItemInput, 0, len(items))
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
				WithDetails(map[string]any{"item": i})
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"item": i, "product_id": item.ProductID})
		}
		key := lineKey{productID: item.ProductID}
		if item.VariantID != nil {
			key.variantID = *item.VariantID
		}
		if at, ok := index[key]; ok {
			out[at].Quantity += item.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}
	return out, nil
}

func productIDs(lines []ItemInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

// priceLines snapshots catalog prices into order items and checks stock.
func priceLines(storeID uuid.UUID, lines []ItemInput, catalog map[uuid.UUID]models.Product) ([]models.OrderItem, int, error) {
	items := make([]models.OrderItem, 0, len(lines))
	subtotal := 0
	for _, line := range lines {
		product, ok := catalog[line.ProductID]
		if !ok || product.StoreID != storeID {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product is not sold by this store").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if product.Status != enums.ProductStatusActive {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"product_id": product.ID, "status": product.Status})
		}

		item := models.OrderItem{
			ProductID:      product.ID,
			Title:          product.Title,
			SKU:            product.SKU,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
		}
		if line.VariantID != nil {
			variant := findVariant(product, *line.VariantID)
			if variant == nil {
				return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product").
					WithDetails(map[string]any{"product_id": product.ID, "variant_id": *line.VariantID})
			}
			if !variant.IsAvailable || variant.Quantity < line.Quantity {
				return nil, 0, shortfall(product.ID, line.VariantID, variant.Quantity, line.Quantity)
			}
			if variant.PriceCents != nil {
				item.UnitPriceCents = *variant.PriceCents
			}
			variantID := variant.ID
			item.VariantID = &variantID
			item.Title = product.Title + " / " + variant.Title
			if variant.SKU != "" {
				item.SKU = variant.SKU
			}
		} else if product.TrackInventory && product.Quantity < line.Quantity {
			return nil, 0, shortfall(product.ID, nil, product.Quantity, line.Quantity)
		}

		item.TotalCents = item.UnitPriceCents * item.Quantity
		subtotal += item.TotalCents
		items = append(items, item)
	}
	return items, subtotal, nil
}

func findVariant(product models.Product, id uuid.UUID) *models.ProductVariant {
	for i := range product.Variants {
		if product.Variants[i].ID == id {
			return &product.Variants[i]
		}
	}
	return nil
}

func shortfall(productID uuid.UUID, variantID *uuid.UUID, available, requested int) error {
	details := map[string]any{
		"product_id": productID,
		"available":  available,
		"requested":  requested,
	}
	if variantID != nil {
		details["variant_id"] = *variantID
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(details)
}
