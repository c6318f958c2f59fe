package auth

import (
	"context"

	"github.com/dukerupert/homequest/internal/identity"
)

type contextKey struct{}

// WithIdentity attaches the authenticated identity to the request context.
func WithIdentity(ctx context.Context, ident identity.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, ident)
}

// FromContext returns the authenticated identity, if any.
func FromContext(ctx context.Context) (identity.Identity, bool) {
	ident, ok := ctx.Value(contextKey{}).(identity.Identity)
	return ident, ok
}

// UserID returns the authenticated user's id, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	ident, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ident.ID
}
