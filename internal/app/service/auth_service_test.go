package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/common/security"
	"github.com/Latte72R/typing-backend/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// GenerateToken reads the token lifetime from config.AppConfig.
	config.AppConfig = &config.Config{JWTExp: time.Hour}
	security.TokenAuth = jwtauth.New("HS256", []byte("test-secret"), nil)
}

func TestSignupAndLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), newFakeRefreshTokenRepo())

	signed, err := svc.Signup(context.Background(), SignupRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Empty(t, signed.User.HashedPassword)
	assert.NotEmpty(t, signed.Token)
	assert.NotEmpty(t, signed.RefreshToken)

	loggedIn, err := svc.Login(context.Background(), LoginRequest{LoginField: "alice@example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, loggedIn.User.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), newFakeRefreshTokenRepo())
	_, err := svc.Signup(context.Background(), SignupRequest{Username: "bob", Email: "bob@example.com", Password: "correct"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{LoginField: "bob@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestRotateRefreshTokenRotatesAndRevokesPrior(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), newFakeRefreshTokenRepo())
	signed, err := svc.Signup(context.Background(), SignupRequest{Username: "carol", Email: "carol@example.com", Password: "pw"})
	require.NoError(t, err)

	rotated, err := svc.RotateRefreshToken(context.Background(), signed.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, signed.RefreshToken, rotated.RefreshToken)

	// The original refresh token must no longer be usable.
	_, err = svc.RotateRefreshToken(context.Background(), signed.RefreshToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestRevokeAllSessions(t *testing.T) {
	userRepo := newFakeUserRepo()
	refreshRepo := newFakeRefreshTokenRepo()
	svc := NewAuthService(userRepo, refreshRepo)

	signed, err := svc.Signup(context.Background(), SignupRequest{Username: "dave", Email: "dave@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllSessions(context.Background(), signed.User.ID))

	_, err = svc.RotateRefreshToken(context.Background(), signed.RefreshToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}
