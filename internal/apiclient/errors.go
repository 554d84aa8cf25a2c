package apiclient

import (
	"fmt"
	"net/http"

	"github.com/pot-code/learning-gateway/internal/domain"
)

// APIError failed platform call. Err is one of the domain sentinels when the
// failure maps onto one, so callers can test it with errors.Is.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s: upstream responded %d: %s", e.Operation, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classify maps an upstream status onto the domain error taxonomy
func classify(status int) error {
	switch {
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrAccessDenied
	case status >= http.StatusInternalServerError:
		return domain.ErrUpstreamUnavailable
	}
	return nil
}
