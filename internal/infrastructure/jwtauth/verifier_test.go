package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatmate/pkg/errors"
)

func TestVerifyTokenRoundTrip(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.Sign("user-1", time.Hour)
	require.NoError(t, err)

	userID, err := v.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyTokenFallsBackToSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	userID, err := NewVerifier("secret").VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)
}

func TestVerifyTokenRejects(t *testing.T) {
	v := NewVerifier("secret")

	expired, err := v.Sign("user-1", -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewVerifier("other").Sign("user-1", time.Hour)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"expired":   expired,
		"wrong key": otherKey,
		"no user":   noUser,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.VerifyToken(context.Background(), token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeUnauthorized))
		})
	}
}
