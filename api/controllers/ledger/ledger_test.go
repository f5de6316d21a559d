package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	internalledger "github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type stubReader struct {
	listStore      uuid.UUID
	reconcileStore uuid.UUID
}

func (s *stubReader) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (pagination.Page[internalledger.TransactionDTO], error) {
	s.listStore = storeID
	return pagination.Page[internalledger.TransactionDTO]{Items: []internalledger.TransactionDTO{}}, nil
}

func (s *stubReader) Reconcile(ctx context.Context, storeID uuid.UUID) (*internalledger.ReconcileReport, error) {
	s.reconcileStore = storeID
	return &internalledger.ReconcileReport{StoreID: storeID, Healthy: true}, nil
}

type stubOwners struct {
	ownerID uuid.UUID
	calls   int
}

func (s *stubOwners) RequireOwner(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Store, error) {
	s.calls++
	if actor.UserID != s.ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store owner required")
	}
	return &models.Store{ID: id, OwnerID: s.ownerID}, nil
}

func (s *stubOwners) Get(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return &models.Store{ID: id, OwnerID: s.ownerID, BalanceCents: 4200, PendingBalanceCents: 800}, nil
}

func requestAs(target string, actor types.Actor) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func TestListChecksOwnership(t *testing.T) {
	storeID := uuid.New()
	ownerID := uuid.New()
	reader := &stubReader{}
	owners := &stubOwners{ownerID: ownerID}

	resp := httptest.NewRecorder()
	List(reader, owners, nil).ServeHTTP(resp, requestAs("/api/v1/vendor/ledger", types.Actor{UserID: ownerID, Kind: enums.ActorVendor, StoreID: &storeID}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if reader.listStore != storeID {
		t.Fatalf("expected store %s got %s", storeID, reader.listStore)
	}

	resp = httptest.NewRecorder()
	List(reader, owners, nil).ServeHTTP(resp, requestAs("/api/v1/vendor/ledger", types.Actor{UserID: uuid.New(), Kind: enums.ActorVendor, StoreID: &storeID}))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stale vendor token got %d", resp.Code)
	}
}

func TestReconcileAllowsAdminWithStoreParam(t *testing.T) {
	storeID := uuid.New()
	reader := &stubReader{}
	owners := &stubOwners{}

	resp := httptest.NewRecorder()
	Reconcile(reader, owners, nil).ServeHTTP(resp, requestAs("/api/v1/vendor/ledger/reconcile?store_id="+storeID.String(), types.Actor{UserID: uuid.New(), Kind: enums.ActorAdmin}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if reader.reconcileStore != storeID {
		t.Fatalf("expected reconcile of %s got %s", storeID, reader.reconcileStore)
	}
	if owners.calls != 0 {
		t.Fatal("admins skip the ownership check")
	}
}

func TestReconcileAdminRequiresStoreParam(t *testing.T) {
	resp := httptest.NewRecorder()
	Reconcile(&stubReader{}, &stubOwners{}, nil).ServeHTTP(resp, requestAs("/api/v1/vendor/ledger/reconcile", types.Actor{UserID: uuid.New(), Kind: enums.ActorAdmin}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBalanceReportsProjection(t *testing.T) {
	storeID := uuid.New()
	ownerID := uuid.New()
	owners := &stubOwners{ownerID: ownerID}

	resp := httptest.NewRecorder()
	Balance(owners, nil).ServeHTTP(resp, requestAs("/api/v1/vendor/balance", types.Actor{UserID: ownerID, Kind: enums.ActorVendor, StoreID: &storeID}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if owners.calls != 1 {
		t.Fatalf("expected ownership check, got %d calls", owners.calls)
	}

	resp = httptest.NewRecorder()
	Balance(owners, nil).ServeHTTP(resp, requestAs("/api/v1/vendor/balance?store_id="+storeID.String(), types.Actor{UserID: uuid.New(), Kind: enums.ActorAdmin}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Data struct {
			BalanceCents        int `json:"balance_cents"`
			PendingBalanceCents int `json:"pending_balance_cents"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.BalanceCents != 4200 || body.Data.PendingBalanceCents != 800 {
		t.Fatalf("unexpected balances %+v", body.Data)
	}
	if owners.calls != 1 {
		t.Fatal("admins read the store directly")
	}
}
