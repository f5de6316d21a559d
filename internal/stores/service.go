package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type storeReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// Service answers the store questions every workflow asks: does it exist and
// does the actor own it.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Store, error)
	RequireOwner(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Store, error)
}

type service struct {
	repo storeReader
}

func NewService(repo storeReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store, nil
}

func (s *service) RequireOwner(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Store, error) {
	store, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := EnsureOwner(store, actor); err != nil {
		return nil, err
	}
	return store, nil
}

// EnsureOwner fails unless actor is the vendor who owns store.
func EnsureOwner(store *models.Store, actor types.Actor) error {
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if actor.Kind != enums.ActorVendor || actor.UserID != store.OwnerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store owner required")
	}
	return nil
}
