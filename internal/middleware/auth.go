// Package middleware provides authentication, logging, rate limiting and
// metrics middleware for the HTTP API.
package middleware

import (
	"context"
	"strings"

	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals written by the auth middleware.
const (
	LocalUserID   = "userID"
	LocalIdentity = "identity"
)

// TokenVerifier maps a bearer token back to the identity it was issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		identity, err := v.VerifyToken(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		setIdentity(c, identity)
		return c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := BearerToken(c); ok {
			if identity, err := v.VerifyToken(c.UserContext(), token); err == nil {
				setIdentity(c, identity)
			}
		}
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, identity *models.Identity) {
	c.Locals(LocalUserID, identity.UserID)
	c.Locals(LocalIdentity, identity)
	// Sync to UserContext for logging and downstream services
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, identity.UserID))
}

// UserID returns the authenticated user id, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

// IdentityFrom returns the verified token identity, if any.
func IdentityFrom(c *fiber.Ctx) (*models.Identity, bool) {
	identity, ok := c.Locals(LocalIdentity).(*models.Identity)
	return identity, ok && identity != nil
}
