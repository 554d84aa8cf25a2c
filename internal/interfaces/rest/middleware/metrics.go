package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/infrastructure/metrics"
)

// Metrics count requests and observe their latency per route
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RecordRequest(route, c.Request().Method, c.Response().Status, time.Since(start))
			return err
		}
	}
}
