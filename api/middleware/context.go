package middleware

import (
	"context"

	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the verified caller on the request context.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller seeded by Auth.
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	if ctx == nil {
		return types.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(types.Actor)
	return actor, ok
}

func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

func StoreIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.StoreID != nil {
		return actor.StoreID.String()
	}
	return ""
}
