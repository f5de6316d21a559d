package types

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Actor is the caller resolved by the identity layer before any core
// operation runs. StoreID is the vendor's active store, when any.
type Actor struct {
	UserID  uuid.UUID
	Kind    enums.ActorKind
	StoreID *uuid.UUID
}

// SystemActor is used for provider callbacks and scheduled jobs.
func SystemActor() Actor {
	return Actor{Kind: enums.ActorSystem}
}

func (a Actor) IsAdmin() bool { return a.Kind == enums.ActorAdmin }

// ActorID returns the user id or nil for system actors.
func (a Actor) ActorID() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
