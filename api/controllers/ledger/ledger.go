package ledger

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/controllers/vendorcontext"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internalledger "github.com/angelmondragon/bazaar-backend/internal/ledger"
	internalstores "github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Reader is the read side of the ledger.
type Reader interface {
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (pagination.Page[internalledger.TransactionDTO], error)
	Reconcile(ctx context.Context, storeID uuid.UUID) (*internalledger.ReconcileReport, error)
}

// OwnerChecker confirms a vendor still owns the store named in the token.
type OwnerChecker interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Store, error)
	RequireOwner(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Store, error)
}

// List pages through the store's ledger entries.
func List(ledger Reader, stores OwnerChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, ok := authorize(w, r, ledger, stores, logg)
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := ledger.ListByStore(r.Context(), storeID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Reconcile replays the store's ledger and reports any drift.
func Reconcile(ledger Reader, stores OwnerChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, ok := authorize(w, r, ledger, stores, logg)
		if !ok {
			return
		}
		report, err := ledger.Reconcile(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// Balance returns the store's projected balances.
func Balance(stores OwnerChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stores == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}
		actor, storeID, err := vendorcontext.ResolveVendorStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var store *models.Store
		if actor.IsAdmin() {
			store, err = stores.Get(r.Context(), storeID)
		} else {
			store, err = stores.RequireOwner(r.Context(), storeID, actor)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalstores.NewBalanceDTO(store))
	}
}

func authorize(w http.ResponseWriter, r *http.Request, ledger Reader, stores OwnerChecker, logg *logger.Logger) (uuid.UUID, bool) {
	if ledger == nil || stores == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
		return uuid.Nil, false
	}
	actor, storeID, err := vendorcontext.ResolveVendorStoreID(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	if actor.IsAdmin() {
		return storeID, true
	}
	if _, err := stores.RequireOwner(r.Context(), storeID, actor); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return storeID, true
}
