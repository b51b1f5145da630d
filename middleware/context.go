package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fludio/fludiobe/internal/policy"
)

// Context key type to avoid collisions
type contextKey string

// PrincipalKey is the context key for the authenticated principal
const PrincipalKey contextKey = "principal"

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetPrincipalFromContext retrieves the principal from context.
// A nil result means the caller is anonymous.
func GetPrincipalFromContext(ctx context.Context) *policy.Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if principal, ok := val.(*policy.Principal); ok {
			return principal
		}
	}
	return nil
}

// WithPrincipal adds a principal to the context
func WithPrincipal(ctx context.Context, principal *policy.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}
