package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/account-api/internal/model"
	"github.com/iliyamo/account-api/internal/service"
)

// Context keys set by SessionAuth.
const (
	ctxUser  = "user"
	ctxToken = "token"
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// SessionAuth returns an Echo middleware that validates a Bearer session
// token and injects the owning user and the raw token into the request
// context.  Unlike a stateless JWT check, a valid signature is not enough:
// the token must still be in the user's token list, so logout, logoutAll
// and account deletion take effect on the very next request.  Handlers
// read the results through CurrentUser and CurrentToken.
func SessionAuth(auth Authenticator, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	// The outer function runs once when the route is registered; the
	// returned handler runs for every request.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Read the Authorization header.  A usable header starts with
			// "Bearer " followed by a non-empty token; anything else is
			// answered with the same 401 as a bad token.
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if !strings.HasPrefix(header, "Bearer ") || raw == "" {
				return unauthorized(c)
			}

			// Authenticate checks the HMAC signature, loads the user named
			// by the token and requires the token to be one of its sessions.
			// Bad signature, deleted user and revoked token all come back as
			// service.ErrAuth.  Any other error is a store failure: log it
			// for operators but still answer 401 so nothing leaks.
			u, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				if !errors.Is(err, service.ErrAuth) {
					log.Error("authenticate failed", zap.Error(err), zap.String("request_id", RequestID(c)))
				}
				return unauthorized(c)
			}

			// Store the user and the token for the handler.  Logout needs
			// the exact token string to revoke only this session.
			c.Set(ctxUser, u)
			c.Set(ctxToken, raw)
			return next(c)
		}
	}
}

// unauthorized writes the single response used for every failed
// authentication.
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "please authenticate"})
}
