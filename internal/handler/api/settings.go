package api

import (
	"github.com/labstack/echo/v4"

	"TriRecover/internal/domain/models"
	xhttp "TriRecover/pkg/http"
)

func (h *Handler) GetSettings(c echo.Context) error {
	s, err := h.settings.Get(c.Request().Context())
	if err != nil {
		return h.fail(c, "get settings", err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *Handler) PutSettings(c echo.Context) error {
	req := &models.SettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s := models.AppSettings{BaselineDays: req.BaselineDays, Mode: models.Mode(req.Mode)}
	if err := h.settings.Save(c.Request().Context(), s); err != nil {
		return h.fail(c, "save settings", err)
	}
	return xhttp.SuccessResponse(c, s)
}

// Sync runs a cloud pull (default) or push (?direction=push).
func (h *Handler) Sync(c echo.Context) error {
	ctx := c.Request().Context()
	switch dir := c.QueryParam("direction"); dir {
	case "", "pull":
		res, err := h.sync.Pull(ctx)
		if err != nil {
			return h.fail(c, "sync pull", err)
		}
		return xhttp.SuccessResponse(c, res)
	case "push":
		res, err := h.sync.Push(ctx)
		if err != nil {
			return h.fail(c, "sync push", err)
		}
		return xhttp.SuccessResponse(c, res)
	default:
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown direction %q", dir))
	}
}
