package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// TokenVerifier turns a bearer token into verified actor claims.
type TokenVerifier interface {
	Verify(token string) (*auth.ActorClaims, error)
}

// Auth requires an "Authorization: Bearer <jwt>" header and seeds the
// request context with the verified actor.
func Auth(verifier TokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="bazaar"`)
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="bazaar", error="invalid_token"`)
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withActorLogged(r, claims.Actor(), logg)))
		})
	}
}

func withActorLogged(r *http.Request, actor types.Actor, logg *logger.Logger) context.Context {
	ctx := WithActor(r.Context(), actor)
	if logg == nil {
		return ctx
	}
	ctx = logg.WithActor(ctx, actor.UserID.String(), string(actor.Kind))
	if actor.StoreID != nil {
		ctx = logg.WithStoreID(ctx, actor.StoreID.String())
	}
	return ctx
}

// bearerToken extracts the token from a Bearer authorization header; the
// scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireActorKind rejects callers whose actor kind is not listed.
func RequireActorKind(logg *logger.Logger, kinds ...enums.ActorKind) func(http.Handler) http.Handler {
	allowed := make(map[enums.ActorKind]struct{}, len(kinds))
	for _, kind := range kinds {
		allowed[kind] = struct{}{}
	}
	return requireActor(logg, func(actor types.Actor) error {
		if _, ok := allowed[actor.Kind]; ok {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor kind not permitted")
	})
}

// StoreContext admits vendors bound to a store, and admins, who must name
// the store explicitly on each call.
func StoreContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireActor(logg, func(actor types.Actor) error {
		if actor.Kind == enums.ActorAdmin {
			return nil
		}
		if actor.Kind != enums.ActorVendor || actor.StoreID == nil {
			return pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
		}
		return nil
	})
}

func requireActor(logg *logger.Logger, check func(types.Actor) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing"))
				return
			}
			if err := check(actor); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
