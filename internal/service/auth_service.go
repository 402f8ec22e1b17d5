package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

// AuthConfig defines how access tokens issued by the school API are checked.
type AuthConfig struct {
	AccessTokenSecret string
	Leeway            time.Duration
}

// AuthService validates access tokens before they are forwarded upstream.
// Without a secret the claims are decoded but not verified; the student API
// remains the authority and rejects bad tokens itself.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AccessTokenSecret == "" {
		logger.Warn("JWT_SECRET not set; access tokens are forwarded without local verification")
	}
	return &AuthService{logger: logger, config: config}
}

// Verifies reports whether tokens are checked locally.
func (s *AuthService) Verifies() bool {
	return s.config.AccessTokenSecret != ""
}

// ValidateToken parses tokenString and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if tokenString == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing token")
	}

	if !s.Verifies() {
		claims := &models.JWTClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
		}
		if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Add(s.config.Leeway)) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token expired")
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithLeeway(s.config.Leeway))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
