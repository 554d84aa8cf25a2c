package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// routeFields route params worth a log field of their own
var routeFields = map[string]string{
	"id":        "course.id",
	"sectionId": "section.id",
	"lessonId":  "lesson.id",
	"sid":       "session.id",
}

type LoggingConfig struct {
	// Skipper defines a function to skip middleware.
	Skipper middleware.Skipper
}

// requestFields trace id plus the course, section, lesson and session the request is about
func requestFields(c echo.Context) []zap.Field {
	fields := []zap.Field{zap.String("trace.id", c.Response().Header().Get(echo.HeaderXRequestID))}
	values := c.ParamValues()
	for i, name := range c.ParamNames() {
		key, ok := routeFields[name]
		if !ok || i >= len(values) || values[i] == "" {
			continue
		}
		fields = append(fields, zap.String(key, values[i]))
	}
	return fields
}

// Logging access log of every request, at debug level
func Logging(base *zap.Logger, options ...*LoggingConfig) echo.MiddlewareFunc {
	cfg := &LoggingConfig{
		Skipper: middleware.DefaultSkipper,
	}
	if len(options) > 0 && options[0].Skipper != nil {
		cfg.Skipper = options[0].Skipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			err := next(c)
			req := c.Request()
			code := c.Response().Status
			base.Debug(http.StatusText(code), append(requestFields(c),
				zap.String("http.route", c.Path()),
				zap.String("url.path", req.RequestURI),
				zap.String("client.address", c.RealIP()),
				zap.String("http.request.method", req.Method),
				zap.Int("http.response.status_code", code),
			)...)
			return err
		}
	}
}

// SetTraceLogger put a logger carrying the request fields into the request context,
// use cases pick it up with logging.ExtractLoggerFromContext
func SetTraceLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			logger := base.With(requestFields(c)...)
			c.SetRequest(r.WithContext(logging.SetLoggerInContext(r.Context(), logger)))
			return next(c)
		}
	}
}
