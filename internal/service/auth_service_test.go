package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/pkg/config"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	svc, err := NewAuthService(config.AuthConfig{
		Secret:        "test-secret",
		AdminEmail:    "admin@example.com",
		AdminPassword: "correct horse battery staple",
		TokenTTL:      time.Hour,
	}, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newTestAuthService(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "Admin@Example.com",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.AdminRole, res.User.Role)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, models.AdminRole, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "intruder@example.com",
		Password: "correct horse battery staple",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginValidatesPayload(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc := newTestAuthService(t)
	other, err := NewAuthService(config.AuthConfig{
		Secret:        "different-secret",
		AdminEmail:    "admin@example.com",
		AdminPassword: "correct horse battery staple",
	}, nil, nil)
	require.NoError(t, err)

	res, err := other.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
