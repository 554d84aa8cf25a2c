package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/infrastructure/auth"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// ValidateTokenOption ...
type ValidateTokenOption struct {
	InBlackList func(ctx context.Context, token string) (bool, error)
	// Propagate attach the verified token to the request context, eg. for upstream calls
	Propagate func(ctx context.Context, token string) context.Context
}

// VerifyToken validate JWT
func VerifyToken(ju *auth.JWTUtil, options ...*ValidateTokenOption) echo.MiddlewareFunc {
	inBlacklist := func(context.Context, string) (bool, error) { return false, nil }
	propagate := func(ctx context.Context, _ string) context.Context { return ctx }
	if len(options) > 0 {
		option := options[0]
		if option.InBlackList != nil {
			inBlacklist = option.InBlackList
		}
		if option.Propagate != nil {
			propagate = option.Propagate
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := ju.ExtractToken(c)
			if err != nil {
				return c.NoContent(http.StatusUnauthorized)
			}

			r := c.Request()
			if ok, err := inBlacklist(r.Context(), tokenStr); err != nil {
				return err
			} else if ok {
				return c.NoContent(http.StatusUnauthorized)
			}

			token, err := ju.Validate(tokenStr)
			if err != nil {
				logging.ExtractLoggerFromContext(r.Context()).Debug("rejected token", zap.Error(err))
				return c.NoContent(http.StatusUnauthorized)
			}
			ju.SetContextToken(c, token)
			c.SetRequest(r.WithContext(propagate(r.Context(), tokenStr)))
			return next(c)
		}
	}
}
