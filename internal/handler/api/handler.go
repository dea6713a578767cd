package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	domrepo "TriRecover/internal/domain/repository"
	"TriRecover/internal/service/feed"
	svcmetrics "TriRecover/internal/service/metrics"
	"TriRecover/internal/services/exchange"
	"TriRecover/internal/usecase"
	xhttp "TriRecover/pkg/http"
	xlogger "TriRecover/pkg/logger"
)

// Handler serves the journal API.
type Handler struct {
	logger      *xlogger.Logger
	entries     *usecase.EntryService
	assessments *usecase.AssessmentService
	settings    domrepo.SettingsStore
	sync        *usecase.SyncService
	archive     *usecase.ArchiveService
	hub         *feed.Hub
	limiter     echo.MiddlewareFunc
}

func NewHandler(
	logger *xlogger.Logger,
	entries *usecase.EntryService,
	assessments *usecase.AssessmentService,
	settings domrepo.SettingsStore,
	sync *usecase.SyncService,
	archive *usecase.ArchiveService,
	hub *feed.Hub,
) *Handler {
	svcmetrics.Register()
	return &Handler{
		logger:      logger,
		entries:     entries,
		assessments: assessments,
		settings:    settings,
		sync:        sync,
		archive:     archive,
		hub:         hub,
	}
}

// WithRateLimit applies mw to the /api group.
func (h *Handler) WithRateLimit(mw echo.MiddlewareFunc) *Handler {
	h.limiter = mw
	return h
}

var _ xhttp.Handler = (*Handler)(nil)

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(h.limiter)
	}

	g.GET("/entries", h.ListEntries)
	g.GET("/entries/export", h.ExportEntries)
	g.POST("/entries/import", h.ImportEntries)
	g.GET("/entries/:date", h.GetEntry)
	g.PUT("/entries/:date", h.PutEntry)
	g.DELETE("/entries/:date", h.DeleteEntry)

	g.GET("/assessment", h.Assessment)
	g.GET("/assessments", h.Timeline)
	g.GET("/bundle", h.Bundle)
	g.GET("/archive", h.Archive)

	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.PutSettings)

	g.POST("/sync", h.Sync)

	if h.hub != nil {
		g.GET("/feed", h.hub.ServeWS)
	}
}

// fail maps use case errors onto the response envelope.
func (h *Handler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, domrepo.ErrNotFound), errors.Is(err, usecase.ErrNoEntries):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, usecase.ErrInvalidRange),
		errors.Is(err, exchange.ErrUnknownFormat),
		errors.Is(err, exchange.ErrNotArray),
		errors.Is(err, exchange.ErrMissingHeader),
		errors.Is(err, exchange.ErrMalformed):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, usecase.ErrSyncDisabled), errors.Is(err, usecase.ErrArchiveDisabled):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	}
	h.logger.Error(op+" failed", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("Something went wrong").WithError(err))
}
