package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/service/metrics"
	"TriRecover/internal/services/assessment"
	xhttp "TriRecover/pkg/http"
)

type assessmentView struct {
	models.DayAssessment
	Label   string `json:"label"`
	Summary string `json:"summary"`
}

func view(a models.DayAssessment) assessmentView {
	return assessmentView{DayAssessment: a, Label: a.VoteLabel(), Summary: assessment.Summary(a)}
}

func (h *Handler) Assessment(c echo.Context) error {
	var err error
	defer metrics.Observe("assessment", time.Now(), &err)

	req := &models.DateQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := h.assessments.Assess(c.Request().Context(), req.Date)
	if err != nil {
		return h.fail(c, "assessment", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, view(a))
}

func (h *Handler) Timeline(c echo.Context) error {
	var err error
	defer metrics.Observe("timeline", time.Now(), &err)

	req := &models.TimelineQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	days, err := h.assessments.Timeline(c.Request().Context(), req.From, req.To)
	if err != nil {
		return h.fail(c, "timeline", err)
	}
	rows := make([]assessmentView, len(days))
	for i, a := range days {
		rows[i] = view(a)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *Handler) Bundle(c echo.Context) error {
	req := &models.DateQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	text, err := h.assessments.Bundle(c.Request().Context(), req.Date)
	if err != nil {
		return h.fail(c, "bundle", err)
	}
	return c.String(http.StatusOK, text)
}

func (h *Handler) Archive(c echo.Context) error {
	var err error
	defer metrics.Observe("archive", time.Now(), &err)

	req := &models.ArchiveQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.archive.History(c.Request().Context(), req.From, req.To, req.Limit)
	if err != nil {
		return h.fail(c, "archive", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
