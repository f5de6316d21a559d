// Package auth verifies the actor tokens minted by the identity service.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// ActorPayload is the data carried in an access token.
type ActorPayload struct {
	UserID  uuid.UUID
	Kind    enums.ActorKind
	StoreID *uuid.UUID
	JTI     string
}

// ActorClaims is the typed JWT body.
type ActorClaims struct {
	UserID  uuid.UUID       `json:"user_id"`
	Kind    enums.ActorKind `json:"kind"`
	StoreID *uuid.UUID      `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the actor passed to core operations.
func (c *ActorClaims) Actor() types.Actor {
	return types.Actor{UserID: c.UserID, Kind: c.Kind, StoreID: c.StoreID}
}
