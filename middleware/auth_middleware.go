package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/services"
	"github.com/fludio/fludiobe/utils"
	"go.uber.org/zap"
)

// wwwAuthenticate is sent with every 401 so clients know which scheme to use
const wwwAuthenticate = `Bearer realm="api"`

// Authenticator resolves an access token to a principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*policy.Principal, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	authenticator Authenticator
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authenticator Authenticator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		logger:        logger,
	}
}

// Authenticate resolves the bearer token, if any, into a principal on the
// request context. Requests without a bearer token continue anonymously; a
// bearer token that fails validation is rejected with 401 on every route.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token, present := extractBearerToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.authenticator.Authenticate(ctx, token)
		if err != nil {
			if services.IsUnauthorizedError(err) {
				m.logger.Info("token rejected",
					zap.String("request_id", requestID),
					zap.Error(err))
				writeUnauthorized(w, unauthorizedMessage(err))
				return
			}
			m.logger.Error("authentication failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.Int64("user_id", principal.UserID),
			zap.Bool("superuser", principal.IsSuperuser))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequireAuth rejects anonymous requests. It must run after Authenticate.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetPrincipalFromContext(r.Context()).IsAuthenticated() {
			m.logger.Debug("anonymous request rejected",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path))
			writeUnauthorized(w, services.ErrUnauthorized.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", wwwAuthenticate)
	_ = utils.WriteUnauthorized(w, message)
}

func unauthorizedMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header.
// present is false when the header is missing or uses another scheme.
func extractBearerToken(r *http.Request) (token string, present bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	if len(parts) != 2 {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}
