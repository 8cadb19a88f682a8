package api

import xhttp "BarView/pkg/http"

// NewRouter collects every API handler; the server mounts them in this order.
func NewRouter(bars *BarsHandler, instruments *InstrumentsHandler, drawings *DrawingsHandler, health *HealthHandler) xhttp.Handlers {
	return xhttp.Handlers{bars, instruments, drawings, health}
}
