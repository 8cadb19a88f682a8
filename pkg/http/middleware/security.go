package middleware

import "github.com/labstack/echo/v4"

// SecureHeaders sets the browser hardening headers on every response.
func SecureHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXFrameOptions, "DENY")
			h.Set(echo.HeaderXXSSProtection, "1; mode=block")
			return next(c)
		}
	}
}

// RateLimit rejects requests for which allow reports false.
// key extracts the caller identity from the request.
func RateLimit(allow func(key string) bool, key func(c echo.Context) string, onDeny echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allow(key(c)) {
				return onDeny(c)
			}
			return next(c)
		}
	}
}
