package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/internal/authz"
	"github.com/tradepost/tradepost-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

// WithActor seeds the context with the authenticated caller.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID.String())
	return context.WithValue(ctx, ctxRole, string(actor.Role))
}

// ActorFromContext rebuilds the caller identity seeded by the Auth middleware.
// The second return is false when the request was not authenticated.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	if ctx == nil {
		return authz.Actor{}, false
	}
	rawID, ok := ctx.Value(ctxUserID).(string)
	if !ok {
		return authz.Actor{}, false
	}
	userID, err := uuid.Parse(rawID)
	if err != nil || userID == uuid.Nil {
		return authz.Actor{}, false
	}
	rawRole, ok := ctx.Value(ctxRole).(string)
	if !ok {
		return authz.Actor{}, false
	}
	role, err := enums.ParseActorRole(rawRole)
	if err != nil {
		return authz.Actor{}, false
	}
	return authz.Actor{UserID: userID, Role: role}, true
}
