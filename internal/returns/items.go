package returns

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type itemKey struct {
	productID uuid.UUID
	variantID uuid.UUID
}

func keyOf(productID uuid.UUID, variantID *uuid.UUID) itemKey {
	key := itemKey{productID: productID}
	if variantID != nil {
		key.variantID = *variantID
	}
	return key
}

// matchItems aggregates the requested lines, pairs each with its order line
// and returns the return items plus the refund they add up to. claimed holds
// the units per order line already taken by earlier returns.
func matchItems(orderItems []models.OrderItem, requested []ItemInput, claimed map[uuid.UUID]int) ([]models.ReturnItem, int, error) {
	if len(requested) == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "return must contain at least one item")
	}
	lines := make(map[itemKey]*models.OrderItem, len(orderItems))
	for i := range orderItems {
		item := &orderItems[i]
		lines[keyOf(item.ProductID, item.VariantID)] = item
	}

	quantities := make(map[itemKey]int, len(requested))
	order := make([]itemKey, 0, len(requested))
	for _, req := range requested {
		if req.Quantity <= 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": req.ProductID})
		}
		key := keyOf(req.ProductID, req.VariantID)
		if _, ok := lines[key]; !ok {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "item is not part of this order").
				WithDetails(map[string]any{"product_id": req.ProductID, "variant_id": req.VariantID})
		}
		if _, seen := quantities[key]; !seen {
			order = append(order, key)
		}
		quantities[key] += req.Quantity
	}

	items := make([]models.ReturnItem, 0, len(order))
	refund := 0
	for _, key := range order {
		line := lines[key]
		qty := quantities[key]
		if remaining := line.Quantity - claimed[line.ID]; qty > remaining {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "return quantity exceeds returnable quantity").
				WithDetails(map[string]any{
					"product_id": line.ProductID,
					"ordered":    line.Quantity,
					"returnable": max(remaining, 0),
					"requested":  qty,
				})
		}
		items = append(items, models.ReturnItem{
			OrderItemID:    line.ID,
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			Quantity:       qty,
			UnitPriceCents: line.UnitPriceCents,
		})
		refund += qty * line.UnitPriceCents
	}
	return items, refund, nil
}

// coversOrder reports whether the return, together with the units refunded
// before it, takes back every order line in full.
func coversOrder(orderItems []models.OrderItem, returned []models.ReturnItem, refunded map[uuid.UUID]int) bool {
	byLine := make(map[uuid.UUID]int, len(orderItems))
	for id, qty := range refunded {
		byLine[id] = qty
	}
	for _, item := range returned {
		byLine[item.OrderItemID] += item.Quantity
	}
	for _, item := range orderItems {
		if byLine[item.ID] < item.Quantity {
			return false
		}
	}
	return len(orderItems) > 0
}

func returnLines(items []models.ReturnItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return lines
}
