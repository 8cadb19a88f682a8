package api

import (
	"net/http"

	"BarView/internal/usecase"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	health *usecase.HealthUseCase
}

func NewHealthHandler(health *usecase.HealthUseCase) *HealthHandler {
	return &HealthHandler{health: health}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

// Health reports 200 while the store answers, 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	r := h.health.Check(c.Request().Context())
	status := http.StatusOK
	if !r.Healthy() {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, r)
}
