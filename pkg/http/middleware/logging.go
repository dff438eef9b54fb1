// Package middleware holds the HTTP middleware applied to every process that
// exposes the API surface.
package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"AlphaScout/pkg/logger"
)

// RequestLogging logs one line per request with the route template, status
// and latency.
func RequestLogging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			log.Info("http request",
				logger.String("method", c.Request().Method),
				logger.String("route", routeLabel(c)),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}

// routeLabel prefers the registered route template over the raw URL path to
// keep log and metric cardinality low.
func routeLabel(c echo.Context) string {
	if route := c.Path(); route != "" {
		return route
	}
	return c.Request().URL.Path
}
