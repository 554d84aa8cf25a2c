package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"
	"github.com/pot-code/learning-gateway/internal/apiclient"
	"github.com/pot-code/learning-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewRESTErrorFrom(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		redirect string
	}{
		{"access denied", &apiclient.APIError{Operation: "GetCourse", StatusCode: 403, Err: domain.ErrAccessDenied}, http.StatusForbidden, domain.SafeViewPath},
		{"not found", pkgerrors.WithStack(&apiclient.APIError{StatusCode: 404, Err: domain.ErrNotFound}), http.StatusNotFound, ""},
		{"no such session", domain.ErrNoSuchSession, http.StatusNotFound, ""},
		{"no such lesson", fmt.Errorf("select: %w", domain.ErrNoSuchLesson), http.StatusNotFound, ""},
		{"invalid move", domain.ErrInvalidMove, http.StatusBadRequest, ""},
		{"not ready", domain.ErrNotReady, http.StatusConflict, ""},
		{"closed", domain.ErrSessionClosed, http.StatusGone, ""},
		{"upstream down", &apiclient.APIError{StatusCode: 503, Err: domain.ErrUpstreamUnavailable}, http.StatusBadGateway, ""},
		{"deadline", pkgerrors.Wrap(context.DeadlineExceeded, "GetCourse"), http.StatusGatewayTimeout, ""},
		{"upstream rejected", &apiclient.APIError{StatusCode: 422, Message: "bad order"}, http.StatusUnprocessableEntity, ""},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := NewRESTErrorFrom(tt.err)
			assert.Equal(t, tt.code, re.Code)
			assert.Equal(t, http.StatusText(tt.code), re.Title)
			assert.Equal(t, tt.redirect, re.Redirect)
		})
	}
}

func TestRESTStandardError_SetTraceID(t *testing.T) {
	re := NewRESTStandardError(http.StatusNotFound, "gone")
	traced := re.SetTraceID("trace")
	assert.Equal(t, "trace", traced.TraceID)
	assert.Empty(t, re.TraceID)
	assert.Equal(t, "gone", traced.Error())
}
