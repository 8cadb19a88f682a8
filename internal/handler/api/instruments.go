package api

import (
	"BarView/internal/service/catalog"
	xhttp "BarView/pkg/http"
	xlogger "BarView/pkg/logger"

	"github.com/labstack/echo/v4"
)

type InstrumentsHandler struct {
	logger  *xlogger.Logger
	catalog *catalog.Catalog
}

func NewInstrumentsHandler(logger *xlogger.Logger, c *catalog.Catalog) *InstrumentsHandler {
	return &InstrumentsHandler{logger: logger, catalog: c}
}

func (h *InstrumentsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/instruments")
	g.GET("", h.List)
	g.POST("/refresh", h.Refresh)
}

func (h *InstrumentsHandler) List(c echo.Context) error {
	items, err := h.catalog.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list instruments", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, items)
}

// Refresh drops the cached listing and rescans the store.
func (h *InstrumentsHandler) Refresh(c echo.Context) error {
	items, err := h.catalog.Refresh(c.Request().Context())
	if err != nil {
		h.logger.Error("refresh instruments", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	h.logger.Info("instrument catalog refreshed", xlogger.Int("count", len(items)))
	return xhttp.SuccessResponse(c, items)
}
