package middleware

import (
	"time"

	"CreditRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every request at debug level; the metrics middleware
// already reports slow and failed requests at warn/error.
func RequestLogging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			log.Debug("http request",
				logger.String("method", c.Request().Method),
				logger.String("route", c.Path()),
				logger.String("remote", c.RealIP()),
				logger.Int("status", c.Response().Status),
				logger.Duration("duration_ms", time.Since(start)),
			)
			return err
		}
	}
}
