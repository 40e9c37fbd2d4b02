package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/account-api/internal/middleware"
	"github.com/iliyamo/account-api/internal/service"
)

// UserHandler serves the /users endpoints.
type UserHandler struct {
	Accounts *service.AccountService
	Log      *zap.Logger
	Timeout  time.Duration
}

func NewUserHandler(accounts *service.AccountService, log *zap.Logger, timeout time.Duration) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UserHandler{Accounts: accounts, Log: log, Timeout: timeout}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// Register creates an account and returns it with a first session token.
func (h *UserHandler) Register(c echo.Context) error {
	// Bind the JSON body.  Field level checks (required name, valid email,
	// password strength, non-negative age) belong to the credential store,
	// so only a malformed body is rejected here.
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	// Register validates and stores the user, fires the welcome email and
	// issues the first token.  The email goes out on its own goroutine and
	// never affects the response.
	sess, err := h.Accounts.Register(ctx, service.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// Login opens a new session.  Unknown email and wrong password answer the same.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	// Every credential failure surfaces as service.ErrAuth, which fail
	// renders as a single 400 so callers cannot learn which emails exist.
	sess, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Logout revokes the token that authenticated the request.
func (h *UserHandler) Logout(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Accounts.Logout(ctx, middleware.CurrentUser(c), middleware.CurrentToken(c)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// LogoutAll revokes every token of the caller.
func (h *UserHandler) LogoutAll(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Accounts.LogoutAll(ctx, middleware.CurrentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// Me returns the caller's profile.
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Accounts.Profile(middleware.CurrentUser(c)))
}

// UpdateMe applies a partial profile update.  The body must be a JSON
// object; keys outside name, age, email and password reject the request.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	// Decode into raw values rather than binding a struct: the allow-list
	// has to see every key the client sent, including unknown ones that a
	// struct would silently drop.
	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil || body == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	view, err := h.Accounts.UpdateProfile(ctx, middleware.CurrentUser(c), body)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// DeleteMe removes the caller's account and returns its last profile.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	view, err := h.Accounts.DeleteAccount(ctx, middleware.CurrentUser(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// fail maps service errors to responses.  Anything unrecognised is a 500
// and is logged; its text never reaches the client.
func (h *UserHandler) fail(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"error": ve.Error()}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, service.ErrAuth):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unable to login"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not found"})
	}
	h.Log.Error("request failed",
		zap.String("request_id", middleware.RequestID(c)),
		zap.String("route", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
