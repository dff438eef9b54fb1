package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"AlphaScout/internal/usecase"
	"AlphaScout/pkg/logger"
)

// SignalsHandler serves the read-only view over persisted signals.
type SignalsHandler struct {
	log     *logger.Logger
	history *usecase.SignalHistory
}

func NewSignalsHandler(log *logger.Logger, history *usecase.SignalHistory) *SignalsHandler {
	return &SignalsHandler{log: log, history: history}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/signals/recent", h.recent)
}

func (h *SignalsHandler) health(c echo.Context) error {
	if err := h.history.Health(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SignalsHandler) recent(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
		}
		limit = n
	}

	signals, err := h.history.Recent(c.Request().Context(), limit)
	if err != nil {
		h.log.Error("recent signals query failed", logger.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   len(signals),
		"signals": signals,
	})
}
