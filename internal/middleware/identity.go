package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-api/internal/model"
)

// CurrentUser returns the user stored by SessionAuth, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUser).(*model.User)
	return u
}

// CurrentToken returns the bearer token that authenticated the request.
func CurrentToken(c echo.Context) string {
	s, _ := c.Get(ctxToken).(string)
	return s
}

// currentUserID identifies the caller for rate limit keys.
func currentUserID(c echo.Context) string {
	if u := CurrentUser(c); u != nil && u.ID != "" {
		return u.ID
	}
	return "anon"
}
