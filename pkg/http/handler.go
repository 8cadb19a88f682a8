package http

import "github.com/labstack/echo/v4"

// Handler is anything that mounts routes on the echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// Handlers mounts each member in order. Nil members are skipped so optional
// handlers can be passed straight from the injector.
type Handlers []Handler

func (hs Handlers) RegisterRoutes(e *echo.Echo) {
	for _, h := range hs {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
