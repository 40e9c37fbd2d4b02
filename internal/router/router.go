// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/account-api/internal/handler"
)

// uploadBodyLimit caps the multipart body of an avatar upload.  The avatar
// itself may not exceed 1,000,000 bytes; the rest is room for the
// multipart envelope.
const uploadBodyLimit = "2M"

// Deps holds what the routes need.  RateLimit and AvatarCache may be nil
// or pass-through middleware when Redis is unavailable.
type Deps struct {
	Users       *handler.UserHandler
	Auth        echo.MiddlewareFunc
	RateLimit   echo.MiddlewareFunc
	AvatarCache echo.MiddlewareFunc
}

// RegisterRoutes registers the operational endpoints and the /users API on
// the provided Echo instance.
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Operational endpoints.  /healthz is polled by load balancers and
	// /metrics exposes the Prometheus registry; neither needs a session.
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Without Redis the limiter and the cache are simply skipped, so
	// substitute a middleware that calls straight through.
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	limit, cache := d.RateLimit, d.AvatarCache
	if limit == nil {
		limit = passthrough
	}
	if cache == nil {
		cache = passthrough
	}

	// Public routes.  Register and login hand out session tokens, so they
	// sit behind the token bucket to slow down credential stuffing.  The
	// avatar of any user is public and is served through the Redis cache.
	users := e.Group("/users")
	users.POST("", d.Users.Register, limit)
	users.POST("/login", d.Users.Login, limit)
	users.GET("/:id/avatar", d.Users.GetAvatar, cache)

	// Session routes.  The auth middleware is attached per route rather
	// than through a sub-group: a group with middleware registers
	// catch-all routes, which would answer unknown /users paths with 401
	// instead of 404.  Handlers read the caller through
	// middleware.CurrentUser and the bearer token through
	// middleware.CurrentToken.
	auth := d.Auth
	users.POST("/logout", d.Users.Logout, auth)       // revoke the presented token only
	users.POST("/logoutAll", d.Users.LogoutAll, auth) // revoke every token of the caller
	users.GET("/me", d.Users.Me, auth)
	users.PATCH("/me", d.Users.UpdateMe, auth)
	users.DELETE("/me", d.Users.DeleteMe, auth)

	// The body limit runs before auth so an oversized upload is refused
	// without touching the store.
	users.POST("/me/avatar", d.Users.UploadAvatar, echomw.BodyLimit(uploadBodyLimit), auth)
	users.DELETE("/me/avatar", d.Users.DeleteAvatar, auth)
}
