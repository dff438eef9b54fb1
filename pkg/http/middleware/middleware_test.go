package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"AlphaScout/pkg/logger"
)

func TestRequestLoggingPassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogging(logger.Nop()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetricsCountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.GET("/signals/recent", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("/signals/recent", "GET", "200"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signals/recent", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	after := testutil.ToFloat64(requestsTotal.WithLabelValues("/signals/recent", "GET", "200"))
	if after != before+1 {
		t.Fatalf("request counter = %v, want %v", after, before+1)
	}
}
