package middleware

import (
	"net/http"

	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/services"
	"github.com/fludio/fludiobe/utils"
	"go.uber.org/zap"
)

// PolicyMiddleware evaluates collection-level predicates before a handler runs.
// Object-level checks happen in the services once the record is loaded.
type PolicyMiddleware struct {
	logger *zap.Logger
}

// NewPolicyMiddleware creates a new PolicyMiddleware
func NewPolicyMiddleware(logger *zap.Logger) *PolicyMiddleware {
	return &PolicyMiddleware{logger: logger}
}

// Authorize rejects requests that pred denies for the request's principal.
// The action is derived from the HTTP method. It must run after Authenticate.
func (m *PolicyMiddleware) Authorize(pred policy.Predicate, kind policy.ResourceKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := GetPrincipalFromContext(ctx)
			action := policy.ActionForMethod(r.Method)

			decision := policy.Evaluate(pred, principal, action, policy.Collection(kind))
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}

			m.logger.Info("request denied by policy",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("resource", string(kind)),
				zap.String("action", string(action)),
				zap.String("decision", decision.String()))

			if decision == policy.DenyUnauthenticated {
				writeUnauthorized(w, services.ErrUnauthorized.Message)
				return
			}
			_ = utils.WriteForbidden(w, services.ErrForbidden.Message)
		})
	}
}
