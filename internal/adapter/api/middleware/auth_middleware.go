package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"flatmate/internal/domain/service"
	"flatmate/pkg/errors"
	"flatmate/pkg/response"
)

// UserIDKey is the echo context key holding the authenticated user id.
const UserIDKey = "uid"

type AuthMiddleware struct {
	verifier service.IdentityVerifier
}

func NewAuthMiddleware(verifier service.IdentityVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		userID, err := m.verifier.VerifyToken(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, asUnauthorized(err))
		}

		c.Set(UserIDKey, userID)
		return next(c)
	}
}

// VerifyToken resolves a raw token. The websocket handshake uses it directly.
func (m *AuthMiddleware) VerifyToken(r *http.Request, token string) (string, error) {
	if token == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}
	userID, err := m.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		return "", asUnauthorized(err)
	}
	return userID, nil
}

// BearerToken extracts the token of a "Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func asUnauthorized(err error) error {
	if errors.Is(err, errors.CodeUnauthorized) {
		return err
	}
	return errors.Unauthorized("Invalid or expired token", err)
}

// UserID returns the id set by Authenticate.
func UserID(c echo.Context) string {
	userID, _ := c.Get(UserIDKey).(string)
	return userID
}
