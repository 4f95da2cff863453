// Package jwtauth verifies HS256 bearer tokens issued by the account service.
package jwtauth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"flatmate/pkg/errors"
)

// Claims carries the user id in "id"; tokens from older issuers use "sub".
type Claims struct {
	ID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Subject
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.Unauthorized("Missing token", nil)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("Unexpected signing method", nil)
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}

	userID := claims.UserID()
	if userID == "" {
		return "", errors.Unauthorized("Token has no user id", nil)
	}
	return userID, nil
}

// Sign issues a token for userID. It is used by tests and local tooling.
func (v *Verifier) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
