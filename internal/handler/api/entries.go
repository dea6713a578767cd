package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/service/metrics"
	"TriRecover/internal/services/exchange"
	xhttp "TriRecover/pkg/http"
	"TriRecover/pkg/util"
)

const maxImportBytes = 8 << 20

func (h *Handler) Health(c echo.Context) error {
	if err := h.entries.Health(c.Request().Context()); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("entry store unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]any{"status": "ok", "refDate": h.assessments.RefDate()})
}

func (h *Handler) ListEntries(c echo.Context) error {
	var err error
	defer metrics.Observe("entries_list", time.Now(), &err)

	req := &models.RangeQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.entries.List(c.Request().Context(), req.From, req.To)
	if err != nil {
		return h.fail(c, "list entries", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *Handler) GetEntry(c echo.Context) error {
	date := c.Param("date")
	if !util.ValidDate(date) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid date %q", date))
	}
	e, err := h.entries.Get(c.Request().Context(), date)
	if err != nil {
		return h.fail(c, "get entry", err)
	}
	return xhttp.SuccessResponse(c, e)
}

func (h *Handler) PutEntry(c echo.Context) error {
	var err error
	defer metrics.Observe("entries_put", time.Now(), &err)

	req := &models.EntryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Date != c.Param("date") {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("body date %s does not match path %s", req.Date, c.Param("date")))
	}
	e, err := h.entries.Upsert(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "upsert entry", err)
	}
	return xhttp.SuccessResponse(c, e)
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	date := c.Param("date")
	if !util.ValidDate(date) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid date %q", date))
	}
	if err := h.entries.Delete(c.Request().Context(), date); err != nil {
		return h.fail(c, "delete entry", err)
	}
	return xhttp.NoContentResponse(c)
}

// ImportEntries accepts a CSV or JSON body. The format comes from ?format=,
// then Content-Type, then the body itself.
func (h *Handler) ImportEntries(c echo.Context) error {
	var err error
	defer metrics.Observe("entries_import", time.Now(), &err)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportBytes+1))
	if err != nil {
		return h.fail(c, "read import", err)
	}
	if len(body) > maxImportBytes {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("import larger than %d bytes", maxImportBytes))
	}

	format, err := importFormat(c, body)
	if err != nil {
		return h.fail(c, "import", err)
	}
	res, err := h.entries.Import(c.Request().Context(), format, bytes.NewReader(body))
	if err != nil {
		return h.fail(c, "import", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func importFormat(c echo.Context, body []byte) (exchange.Format, error) {
	if q := c.QueryParam("format"); q != "" {
		return exchange.ParseFormat(q)
	}
	ct := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ct, echo.MIMEApplicationJSON):
		return exchange.FormatJSON, nil
	case strings.HasPrefix(ct, "text/csv"):
		return exchange.FormatCSV, nil
	}
	return exchange.Sniff(body), nil
}

func (h *Handler) ExportEntries(c echo.Context) error {
	format, err := exchange.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return h.fail(c, "export", err)
	}

	var buf bytes.Buffer
	if err := h.entries.Export(c.Request().Context(), format, &buf); err != nil {
		return h.fail(c, "export", err)
	}

	ctype := "text/csv; charset=utf-8"
	if format == exchange.FormatJSON {
		ctype = echo.MIMEApplicationJSONCharsetUTF8
	}
	name := fmt.Sprintf("trirecover-%s.%s", h.assessments.RefDate(), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, ctype, buf.Bytes())
}
