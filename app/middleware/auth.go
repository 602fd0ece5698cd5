package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nettodev/realms-auth/app/entity"
	"github.com/nettodev/realms-auth/app/token"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Context keys under which the gate stores the resolved entities for
// downstream handlers.
const (
	ContextUserKey  = "auth_user"
	ContextTokenKey = "auth_token"
)

type tokenVerifier interface {
	Verify(raw string) (token.Claims, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
}

type tokenLoader interface {
	FindByAccessToken(ctx context.Context, accessToken string) (*entity.Token, error)
}

// AuthMiddleware resolves a bearer access token into an authenticated
// user+session pair. Requiring a live Token record — not just a valid
// signature — is what makes logout and refresh rotation effective before
// the signed token itself expires. The record's own expiry instant is not
// checked here: it only bounds the refresh token.
type AuthMiddleware struct {
	signer tokenVerifier
	users  userLoader
	tokens tokenLoader
}

func NewAuthMiddleware(signer tokenVerifier, users userLoader, tokens tokenLoader) *AuthMiddleware {
	return &AuthMiddleware{signer: signer, users: users, tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing authorization header",
			})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid authorization header format",
			})
		}

		accessToken := parts[1]
		claims, err := m.signer.Verify(accessToken)
		if err != nil {
			logrus.WithError(err).Debug("Invalid or expired access token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		userID, ok := claims.UserID()
		if !ok {
			logrus.Debug("Access token is missing the user id claim")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		ctx := c.Request().Context()

		user, err := m.users.FindByID(ctx, userID)
		if err != nil {
			logrus.WithError(err).Error("Failed to load user for access token")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal server error",
			})
		}
		if user == nil {
			logrus.WithField("user_id", userID).Debug("Access token references a missing user")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		record, err := m.tokens.FindByAccessToken(ctx, accessToken)
		if err != nil {
			logrus.WithError(err).Error("Failed to load session for access token")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal server error",
			})
		}
		if record == nil {
			logrus.WithField("user_id", userID).Debug("No session record for access token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, record)

		return next(c)
	}
}

// UserFromContext returns the authenticated user placed by RequireAuth.
func UserFromContext(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get(ContextUserKey).(*entity.User)
	return user, ok
}

// TokenFromContext returns the session record placed by RequireAuth.
func TokenFromContext(c echo.Context) (*entity.Token, bool) {
	record, ok := c.Get(ContextTokenKey).(*entity.Token)
	return record, ok
}
