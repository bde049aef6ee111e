package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-casino-backend/internal/services"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := services.NewJWTService("secret", time.Hour)

	token, issued, err := svc.GenerateToken(42)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.SessionID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, issued.SessionID, claims.SessionID)
	assert.Equal(t, "42", claims.Subject)

	_, second, err := svc.GenerateToken(42)
	require.NoError(t, err)
	assert.NotEqual(t, issued.SessionID, second.SessionID)
}

func TestJWTRejects(t *testing.T) {
	svc := services.NewJWTService("secret", time.Hour)
	token, _, err := svc.GenerateToken(42)
	require.NoError(t, err)

	_, err = services.NewJWTService("other", time.Hour).ValidateToken(token)
	assert.Error(t, err, "wrong secret")

	expired, _, err := services.NewJWTService("secret", -time.Minute).GenerateToken(42)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	anonymous, _, err := svc.GenerateToken(0)
	require.NoError(t, err)
	_, err = svc.ValidateToken(anonymous)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &services.Claims{UserID: 42}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(none)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
