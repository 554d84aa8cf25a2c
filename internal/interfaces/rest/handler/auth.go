package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/infrastructure/auth"
)

// TokenRevoker ...
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

type AuthHandler struct {
	jwtUtil *auth.JWTUtil
	revoker TokenRevoker
}

func NewAuthHandler(JWTUtil *auth.JWTUtil, Revoker TokenRevoker) *AuthHandler {
	handler := &AuthHandler{JWTUtil, Revoker}
	return handler
}

// HandleSignOut revoke the token for the rest of its lifetime and clear the cookie
func (ah *AuthHandler) HandleSignOut(c echo.Context) (err error) {
	ju := ah.jwtUtil

	tokenStr, err := ju.ExtractToken(c)
	if err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	token, err := ju.Validate(tokenStr)
	if err != nil {
		return c.NoContent(http.StatusUnauthorized)
	}
	if err := ah.revoker.Revoke(c.Request().Context(), tokenStr, token.TimeRemaining()); err != nil {
		return err
	}
	ju.ClearClientToken(c)
	return c.NoContent(http.StatusNoContent)
}
