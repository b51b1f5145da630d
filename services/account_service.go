package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fludio/fludiobe/auth"
	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/repositories"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	MinPasswordLength = 6
	MaxUsernameLength = 150
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	validate        = validator.New()
)

// RegisterInput carries the fields of a sign-up request
type RegisterInput struct {
	Username string
	Password string
	Email    string
}

// RegisterResult is returned after a successful sign-up
type RegisterResult struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Refresh  string `json:"refresh"`
	Access   string `json:"access"`
}

// AccountService handles registration, token issuance and principal resolution
type AccountService struct {
	users  repositories.UserRepository
	tokens *auth.TokenService
	logger *zap.Logger
}

// NewAccountService creates a new AccountService instance
func NewAccountService(users repositories.UserRepository, tokens *auth.TokenService, logger *zap.Logger) *AccountService {
	return &AccountService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates a regular user and returns it with a fresh token pair
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	user, err := s.createUser(ctx, in, false)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return nil, WrapInternal("failed to issue tokens", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))

	return &RegisterResult{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Refresh:  pair.Refresh,
		Access:   pair.Access,
	}, nil
}

// CreateSuperuser creates an account with superuser rights
func (s *AccountService) CreateSuperuser(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.createUser(ctx, in, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("superuser created", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *AccountService) createUser(ctx context.Context, in RegisterInput, superuser bool) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, WrapInternal("failed to check username", err)
	}
	if exists {
		return nil, usernameTaken()
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(in.Username, in.Email, hash)
	user.IsSuperuser = superuser

	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, usernameTaken()
		}
		return nil, WrapInternal("failed to create user", err)
	}
	return user, nil
}

func usernameTaken() error {
	return NewValidationError(ErrUsernameTaken.Message, map[string]string{
		"username": ErrUsernameTaken.Message,
	})
}

func validateRegistration(in RegisterInput) error {
	fields := make(map[string]string)

	switch {
	case in.Username == "":
		fields["username"] = "this field is required"
	case utf8.RuneCountInString(in.Username) > MaxUsernameLength:
		fields["username"] = "ensure this field has no more than 150 characters"
	case !usernamePattern.MatchString(in.Username):
		fields["username"] = "enter a valid username: letters, numbers and @/./+/-/_ only"
	}

	switch {
	case utf8.RuneCountInString(in.Password) < MinPasswordLength:
		fields["password"] = "ensure this field has at least 6 characters"
	case len(in.Password) > auth.MaxPasswordBytes:
		fields["password"] = "ensure this field has no more than 72 bytes"
	}

	if in.Email != "" {
		if err := validate.Var(in.Email, "email"); err != nil {
			fields["email"] = "enter a valid email address"
		}
	}

	if len(fields) > 0 {
		return NewValidationError("invalid registration data", fields)
	}
	return nil
}

// ObtainTokenPair checks credentials and issues a token pair. Unknown
// usernames, wrong passwords and inactive accounts fail identically.
func (s *AccountService) ObtainTokenPair(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			auth.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, WrapInternal("failed to load user", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) || !user.IsActive {
		s.logger.Debug("login rejected", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return nil, WrapInternal("failed to issue tokens", err)
	}
	return pair, nil
}

// RefreshToken exchanges a refresh token for a new access token
func (s *AccountService) RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	pair, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}
	return pair, nil
}

// Authenticate resolves an access token to the principal it identifies.
// The user row is reloaded so that deactivation takes effect immediately.
func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (*policy.Principal, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInactiveUser
		}
		return nil, WrapInternal("failed to load user", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return &policy.Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsSuperuser: user.IsSuperuser,
	}, nil
}

// CurrentUser returns the public view of the calling user
func (s *AccountService) CurrentUser(ctx context.Context, principal *policy.Principal) (*models.UserInfo, error) {
	if !principal.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	return &models.UserInfo{
		ID:       principal.UserID,
		Username: principal.Username,
		Email:    principal.Email,
	}, nil
}
