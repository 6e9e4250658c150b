package httpapi

import (
	"context"

	"github.com/flocknet/flockd/internal/model"
)

type ctxKey string

const authKey ctxKey = "flockd.auth"

// WithAuth stores the authenticated context for the request. It is built once
// by the auth middleware and never mutated afterwards.
func WithAuth(ctx context.Context, auth model.AuthContext) context.Context {
	return context.WithValue(ctx, authKey, auth)
}

// AuthFromCtx fetches the authenticated context.
func AuthFromCtx(ctx context.Context) (model.AuthContext, bool) {
	v := ctx.Value(authKey)
	if v == nil {
		return model.AuthContext{}, false
	}
	auth, ok := v.(model.AuthContext)
	return auth, ok
}
