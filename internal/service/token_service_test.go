package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/warta-go-api/internal/models"
)

var errDatabaseDown = errors.New("database down")

func setupTokenService(t *testing.T) TokenService {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewTokenService("test-secret", time.Hour, client, testLogger())
}

func staffUser() models.User {
	return models.User{ID: 7, Email: "ani@warta.sch.id", DisplayName: "Ani Admin", Role: models.RoleAdmin, Active: true}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := setupTokenService(t)

	signed, err := tokens.Issue(staffUser(), PasswordStateWarn)
	require.NoError(t, err)

	claims, err := tokens.Validate(context.Background(), signed)
	require.NoError(t, err)
	require.Equal(t, uint(7), claims.UserID)
	require.Equal(t, "ani@warta.sch.id", claims.Email)
	require.Equal(t, models.RoleAdmin, claims.Role)
	require.Equal(t, PasswordStateWarn, claims.PasswordState)
	require.NotEmpty(t, claims.JTI)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	tokens := setupTokenService(t)

	signed, err := tokens.Issue(staffUser(), PasswordStateOK)
	require.NoError(t, err)

	_, err = tokens.Validate(context.Background(), signed+"x")
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tokens.Validate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	tokens := setupTokenService(t)
	other := NewTokenService("other-secret", time.Hour, nil, testLogger())

	signed, err := other.Issue(staffUser(), PasswordStateOK)
	require.NoError(t, err)

	_, err = tokens.Validate(context.Background(), signed)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRevokeDenylistsUntilExpiry(t *testing.T) {
	tokens := setupTokenService(t)

	signed, err := tokens.Issue(staffUser(), PasswordStateOK)
	require.NoError(t, err)

	claims, err := tokens.Validate(context.Background(), signed)
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(context.Background(), claims))

	_, err = tokens.Validate(context.Background(), signed)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRevokeIgnoresExpiredClaims(t *testing.T) {
	tokens := setupTokenService(t)

	claims := SessionClaims{JTI: "stale", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, tokens.Revoke(context.Background(), claims))
}
