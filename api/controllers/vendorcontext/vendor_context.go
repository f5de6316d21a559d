package vendorcontext

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// ResolveVendorStoreID returns the store a vendor route acts on. Vendors are
// pinned to the store in their token; admins name it with ?store_id.
func ResolveVendorStoreID(r *http.Request) (types.Actor, uuid.UUID, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return types.Actor{}, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing")
	}

	switch actor.Kind {
	case enums.ActorVendor:
		if actor.StoreID == nil {
			return actor, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context required")
		}
		return actor, *actor.StoreID, nil
	case enums.ActorAdmin:
		raw := strings.TrimSpace(r.URL.Query().Get("store_id"))
		if raw == "" {
			return actor, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id is required for admin requests")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return actor, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
		}
		return actor, id, nil
	}
	return actor, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
}

// RequireActor returns the authenticated caller.
func RequireActor(r *http.Request) (types.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing")
	}
	return actor, nil
}
