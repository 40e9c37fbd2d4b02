package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-api/internal/middleware"
	"github.com/iliyamo/account-api/internal/service"
)

// UploadAvatar reads the multipart field "avatar" and stores it as the
// caller's normalized avatar.
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	// Fetch the uploaded file from the multipart form.  A missing field or
	// a body that is not multipart at all gets the same 400.
	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "please upload an image", "field": "avatar"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "please upload an image", "field": "avatar"})
	}
	defer f.Close()

	// One byte past the limit is enough for the processor to reject it.
	raw, err := io.ReadAll(io.LimitReader(f, service.AvatarMaxBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "please upload an image", "field": "avatar"})
	}

	// The processor checks the file name, size and real image format, then
	// re-encodes to a 250x250 PNG.  Any rejection leaves the stored avatar
	// untouched.
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Accounts.UploadAvatar(ctx, middleware.CurrentUser(c), fh.Filename, raw); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// DeleteAvatar clears the caller's avatar.  It succeeds when none is set.
func (h *UserHandler) DeleteAvatar(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Accounts.DeleteAvatar(ctx, middleware.CurrentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// GetAvatar serves the stored PNG of any user.  A missing user and a user
// without avatar produce the same response.
func (h *UserHandler) GetAvatar(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	img, err := h.Accounts.Avatar(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Blob(http.StatusOK, service.AvatarContentType, img)
}
