package handlers

import (
	"context"
	"net/http"

	"github.com/fludio/fludiobe/auth"
	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/middleware"
	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/services"
	"github.com/fludio/fludiobe/utils"
	"go.uber.org/zap"
)

// AccountService is the subset of services.AccountService the handlers use
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	ObtainTokenPair(ctx context.Context, username, password string) (*auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	CurrentUser(ctx context.Context, principal *policy.Principal) (*models.UserInfo, error)
}

// RegisterRequest is the body of POST /api/auth/register/
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email"`
}

// TokenRequest is the body of POST /api/auth/token/
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /api/auth/token/refresh/
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// AuthHandler handles account and token HTTP requests
type AuthHandler struct {
	accounts AccountService
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts AccountService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// HandleRegister handles POST /api/auth/register/
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req RegisterRequest
	if !decodeBody(w, r, &req, h.logger) || !validateBody(w, &req, h.logger) {
		return
	}

	result, err := h.accounts.Register(ctx, services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		h.logger.Info("registration rejected",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, result)
}

// HandleObtainToken handles POST /api/auth/token/
func (h *AuthHandler) HandleObtainToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TokenRequest
	if !decodeBody(w, r, &req, h.logger) || !validateBody(w, &req, h.logger) {
		return
	}

	pair, err := h.accounts.ObtainTokenPair(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.Info("token request rejected",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("username", req.Username),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, pair)
}

// HandleRefreshToken handles POST /api/auth/token/refresh/
func (h *AuthHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeBody(w, r, &req, h.logger) || !validateBody(w, &req, h.logger) {
		return
	}

	pair, err := h.accounts.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, pair)
}

// HandleCurrentUser handles GET /api/auth/user/
func (h *AuthHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.accounts.CurrentUser(ctx, middleware.GetPrincipalFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, info)
}
