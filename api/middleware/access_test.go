package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "bazaar-test", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	Auth(auth.NewVerifier(testJWT), nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	Auth(auth.NewVerifier(testJWT), nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsTokenFromOtherIssuer(t *testing.T) {
	other := testJWT
	other.Issuer = "someone-else"
	token := mintTestToken(t, other, auth.ActorPayload{UserID: uuid.New(), Kind: enums.ActorCustomer})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(auth.NewVerifier(testJWT), nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsVendorActor(t *testing.T) {
	storeID := uuid.New()
	userID := uuid.New()
	token := mintTestToken(t, testJWT, auth.ActorPayload{UserID: userID, Kind: enums.ActorVendor, StoreID: &storeID})

	var captured types.Actor
	handler := Auth(auth.NewVerifier(testJWT), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatal("expected actor in context")
		}
		captured = actor
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != userID || captured.Kind != enums.ActorVendor {
		t.Fatalf("unexpected actor %+v", captured)
	}
	if captured.StoreID == nil || *captured.StoreID != storeID {
		t.Fatalf("expected store %s got %v", storeID, captured.StoreID)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":       "abc",
		"bearer   abc ":    "abc",
		"BEARER abc":       "abc",
		"abc":              "",
		"Basic dXNlcjpwdw": "",
		"Bearer ":          "",
	}
	for header, want := range cases {
		got, ok := bearerToken(header)
		if got != want || ok != (want != "") {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q", header, got, ok, want)
		}
	}
}

func TestAuthAdvertisesBearerChallenge(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	Auth(auth.NewVerifier(testJWT), nil)(okHandler()).ServeHTTP(resp, req)
	if got := resp.Header().Get("WWW-Authenticate"); !strings.Contains(got, `error="invalid_token"`) {
		t.Fatalf("unexpected challenge %q", got)
	}
}

func TestStoreContextRequiresVendorStore(t *testing.T) {
	storeID := uuid.New()
	tests := []struct {
		name  string
		actor types.Actor
		want  int
	}{
		{"vendor with store", types.Actor{UserID: uuid.New(), Kind: enums.ActorVendor, StoreID: &storeID}, http.StatusOK},
		{"admin", types.Actor{UserID: uuid.New(), Kind: enums.ActorAdmin}, http.StatusOK},
		{"customer", types.Actor{UserID: uuid.New(), Kind: enums.ActorCustomer}, http.StatusForbidden},
		{"vendor without store", types.Actor{UserID: uuid.New(), Kind: enums.ActorVendor}, http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithActor(req.Context(), tt.actor))
		resp := httptest.NewRecorder()
		StoreContext(nil)(okHandler()).ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, resp.Code)
		}
	}
}

func TestRequireActorKind(t *testing.T) {
	mw := RequireActorKind(nil, enums.ActorCustomer, enums.ActorAdmin)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor got %d", resp.Code)
	}

	storeID := uuid.New()
	req = req.WithContext(WithActor(req.Context(), types.Actor{UserID: uuid.New(), Kind: enums.ActorVendor, StoreID: &storeID}))
	resp = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor got %d", resp.Code)
	}

	req = req.WithContext(WithActor(req.Context(), types.Actor{UserID: uuid.New(), Kind: enums.ActorCustomer}))
	resp = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for customer got %d", resp.Code)
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, payload auth.ActorPayload) string {
	t.Helper()
	if payload.JTI == "" {
		payload.JTI = uuid.NewString()
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
