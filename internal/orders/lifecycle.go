package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// AssertTransition fails with InvalidTransition unless the order state
// machine allows from -> to.
func AssertTransition(from, to enums.OrderStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot move from "+from.String()+" to "+to.String()).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": from.NextStatuses(),
		})
}

// Load fetches an order with its items, mapping a missing row to NotFound.
func Load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ApplyTransition asserts order.Status -> to, writes it with the extra
// column updates and mirrors the result onto order.
func ApplyTransition(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, updates map[string]any) error {
	if err := AssertTransition(order.Status, to); err != nil {
		return err
	}
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	if err := Update(ctx, repo, order, updates); err != nil {
		return err
	}
	order.Status = to
	return nil
}

// Update writes column updates guarded on the order's current status.
func Update(ctx context.Context, repo Repository, order *models.Order, updates map[string]any) error {
	ok, err := repo.UpdateIfStatus(ctx, order.ID, order.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}
	return nil
}

// RecordEvent appends a timeline entry. Metadata is marshalled when non-nil.
func RecordEvent(ctx context.Context, repo Repository, orderID uuid.UUID, eventType enums.OrderEventType, description string, actor types.Actor, metadata any, at time.Time) error {
	event := &models.OrderEvent{
		OrderID:     orderID,
		Type:        eventType,
		Description: description,
		ActorKind:   actorKind(actor),
		ActorID:     actor.ActorID(),
		CreatedAt:   at.UTC(),
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order event metadata")
		}
		event.Metadata = raw
	}
	if err := repo.AppendEvent(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order event")
	}
	return nil
}

// InventoryLines maps order items to stock movements.
func InventoryLines(items []models.OrderItem) []inventory.Line {
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

func actorKind(actor types.Actor) enums.ActorKind {
	if actor.Kind == "" {
		return enums.ActorSystem
	}
	return actor.Kind
}
