package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/apiclient"
	"github.com/pot-code/learning-gateway/internal/domain"
	"github.com/pot-code/learning-gateway/internal/infrastructure/validate"
)

// RESTStandardError response error
type RESTStandardError struct {
	Type     string `json:"type,omitempty"`
	Code     int    `json:"code"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

func NewRESTStandardError(code int, detail string) *RESTStandardError {
	return &RESTStandardError{
		Code:   code,
		Title:  http.StatusText(code),
		Detail: detail,
	}
}

func (re RESTStandardError) Error() string {
	return re.Detail
}

func (re RESTStandardError) SetTraceID(traceID string) RESTStandardError {
	re.TraceID = traceID
	return re
}

// RESTValidationError standard validation error
type RESTValidationError struct {
	RESTStandardError
	InvalidParams []*validate.FieldError `json:"invalid_params"`
}

func NewRESTValidationError(code int, detail string, internal []*validate.FieldError) *RESTValidationError {
	return &RESTValidationError{
		RESTStandardError: RESTStandardError{
			Code:   code,
			Title:  http.StatusText(code),
			Detail: detail,
		},
		InvalidParams: internal,
	}
}

func (rve RESTValidationError) Error() string {
	return rve.Detail
}

func (rve RESTValidationError) SetTraceID(traceID string) RESTValidationError {
	rve.RESTStandardError.TraceID = traceID
	return rve
}

// RESTStateError failed mutation, State is what the resource was left in
type RESTStateError struct {
	RESTStandardError
	State interface{} `json:"state"`
}

// NewRESTErrorFrom map an error onto the response the client gets
func NewRESTErrorFrom(err error) *RESTStandardError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return NewRESTStandardError(he.Code, msg)
		}
		return NewRESTStandardError(he.Code, http.StatusText(he.Code))
	}

	var re *RESTStandardError
	if errors.As(err, &re) {
		return re
	}

	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		re = NewRESTStandardError(http.StatusForbidden, domain.ErrAccessDenied.Error())
		re.Redirect = domain.SafeViewPath
		return re
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoSuchSession),
		errors.Is(err, domain.ErrNoSuchLesson),
		errors.Is(err, domain.ErrNoSuchSection):
		return NewRESTStandardError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidMove):
		return NewRESTStandardError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotReady):
		return NewRESTStandardError(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSessionClosed):
		return NewRESTStandardError(http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return NewRESTStandardError(http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewRESTStandardError(http.StatusGatewayTimeout, "Request took too long to complete")
	case errors.Is(err, context.Canceled):
		return NewRESTStandardError(http.StatusRequestTimeout, "Request was cancelled")
	}

	var ae *apiclient.APIError
	if errors.As(err, &ae) && ae.StatusCode >= 400 && ae.StatusCode < 500 {
		return NewRESTStandardError(ae.StatusCode, ae.Message)
	}
	return NewRESTStandardError(http.StatusInternalServerError, err.Error())
}

// stateError respond with the mapped error plus the state the resource was left in
func stateError(c echo.Context, err error, state interface{}) error {
	re := NewRESTErrorFrom(err).SetTraceID(c.Response().Header().Get(echo.HeaderXRequestID))
	return c.JSON(re.Code, &RESTStateError{RESTStandardError: re, State: state})
}

// bindBody bind and validate a request body, responding when it is malformed
func bindBody(c echo.Context, v validate.Validator, body interface{}) (ok bool, err error) {
	if err = c.Bind(body); err != nil {
		detail := "Failed to bind request body"
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Internal != nil {
			detail = he.Internal.Error()
		}
		return false, c.JSON(http.StatusUnprocessableEntity, NewRESTStandardError(http.StatusUnprocessableEntity, detail))
	}
	if verrs := v.Struct(body); verrs != nil {
		return false, c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, "Failed to validate fields", verrs))
	}
	return true, nil
}
