// Package auth issues and validates the JWT access/refresh token pair and
// hashes account passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	// ErrTokenInvalid covers malformed, badly signed or incomplete tokens
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired is returned for a well-formed token past its exp
	ErrTokenExpired = errors.New("token is expired")

	// ErrWrongTokenType is returned when a refresh token is used as access or vice versa
	ErrWrongTokenType = errors.New("token has wrong type")
)

// Claims is the payload carried by both token kinds
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
}

// Config holds token signing parameters
type Config struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Rotate makes Refresh return a new refresh token as well
	Rotate bool
}

// TokenPair is the wire form of an issued token pair.
// Refresh is omitted on refresh responses when rotation is off.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenService mints and verifies HS256 tokens
type TokenService struct {
	cfg Config
	now func() time.Time
}

// NewTokenService creates a new TokenService
func NewTokenService(cfg Config) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

// IssuePair returns a fresh access and refresh token for the user
func (s *TokenService) IssuePair(userID int64, username string) (*TokenPair, error) {
	access, err := s.sign(TokenTypeAccess, userID, username, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(TokenTypeRefresh, userID, username, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The new
// token carries the identity claims of the refresh token; no lookup is done.
func (s *TokenService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	access, err := s.sign(TokenTypeAccess, claims.UserID, claims.Username, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	pair := &TokenPair{Access: access}

	if s.cfg.Rotate {
		pair.Refresh, err = s.sign(TokenTypeRefresh, claims.UserID, claims.Username, s.cfg.RefreshTTL)
		if err != nil {
			return nil, err
		}
	}
	return pair, nil
}

// ValidateAccess verifies an access token and returns its claims
func (s *TokenService) ValidateAccess(accessToken string) (*Claims, error) {
	return s.parse(accessToken, TokenTypeAccess)
}

func (s *TokenService) sign(kind TokenType, userID int64, username string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		TokenType: kind,
		UserID:    userID,
		Username:  username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

func (s *TokenService) parse(tokenString string, want TokenType) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return s.cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.TokenType, want)
	}
	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, fmt.Errorf("%w: missing or inconsistent subject", ErrTokenInvalid)
	}
	return claims, nil
}
