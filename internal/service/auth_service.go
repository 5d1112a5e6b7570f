package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/pkg/config"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

// AuthService authenticates the single admin account and issues session
// tokens. The configured password is hashed once at startup so the
// plaintext never lives beyond construction.
type AuthService struct {
	adminEmail   string
	passwordHash []byte
	secret       []byte
	tokenTTL     time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewAuthService constructs an AuthService from auth configuration.
func NewAuthService(cfg config.AuthConfig, validate *validator.Validate, logger *zap.Logger) (*AuthService, error) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthService{
		adminEmail:   cfg.AdminEmail,
		passwordHash: hash,
		secret:       []byte(cfg.Secret),
		tokenTTL:     tokenTTL,
		validator:    validate,
		logger:       logger,
	}, nil
}

// Login checks the credentials against the admin account and issues a
// signed session token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	if !strings.EqualFold(req.Email, s.adminEmail) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	issuedAt := time.Now().UTC()
	claims := &models.SessionClaims{
		Email: s.adminEmail,
		Role:  models.AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.adminEmail,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}

	s.logger.Info("admin logged in", zap.String("email", s.adminEmail))
	return &models.LoginResponse{
		Token:     signed,
		ExpiresIn: int64(s.tokenTTL.Seconds()),
		IssuedAt:  issuedAt,
		User:      models.UserInfo{Email: s.adminEmail, Role: models.AdminRole},
	}, nil
}

// ValidateToken parses and validates a session token returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}
