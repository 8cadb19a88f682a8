package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	models "BarView/internal/domain/models"
	"BarView/internal/usecase"
	xhttp "BarView/pkg/http"
	xlogger "BarView/pkg/logger"

	"github.com/labstack/echo/v4"
)

type DrawingsHandler struct {
	logger   *xlogger.Logger
	drawings *usecase.DrawingsUseCase
}

func NewDrawingsHandler(logger *xlogger.Logger, drawings *usecase.DrawingsUseCase) *DrawingsHandler {
	return &DrawingsHandler{logger: logger, drawings: drawings}
}

func (h *DrawingsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/drawings")
	g.GET("", h.List)
	g.POST("", h.Save)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}

func (h *DrawingsHandler) List(c echo.Context) error {
	req := &models.DrawingListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	page, err := h.drawings.List(c.Request().Context(), req.Page, req.PerPage)
	if err != nil {
		return h.fail(c, "list drawings", err)
	}
	return xhttp.SuccessResponse(c, page)
}

func (h *DrawingsHandler) Save(c echo.Context) error {
	req := &models.SaveDrawingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// Anything but a list of strings is stored as no instruments.
	var instruments []string
	if len(req.Instruments) > 0 {
		if err := json.Unmarshal(req.Instruments, &instruments); err != nil {
			instruments = nil
		}
	}

	id, err := h.drawings.Save(c.Request().Context(), usecase.SaveDrawingParams{
		Name:        req.Name,
		Layout:      req.Layout,
		Instruments: instruments,
		Timeframe:   req.Timeframe,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Drawings:    req.Drawings,
	})
	if err != nil {
		return h.fail(c, "save drawing", err)
	}
	return xhttp.SuccessResponse(c, xhttp.MessageBody{ID: id, Message: "Drawings saved successfully"})
}

func (h *DrawingsHandler) Get(c echo.Context) error {
	id, ok := drawingID(c)
	if !ok {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, "Invalid drawing ID")
	}
	d, err := h.drawings.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "get drawing", err)
	}
	return xhttp.SuccessResponse(c, d)
}

func (h *DrawingsHandler) Delete(c echo.Context) error {
	id, ok := drawingID(c)
	if !ok {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, "Invalid drawing ID")
	}
	if err := h.drawings.Delete(c.Request().Context(), id); err != nil {
		return h.fail(c, "delete drawing", err)
	}
	return xhttp.SuccessResponse(c, xhttp.MessageBody{Message: "Drawing deleted successfully"})
}

func (h *DrawingsHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op, xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func drawingID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
