// internal/app/system/apierror/apierror.go
package apierror

import (
	"fmt"
	"net/http"
)

// Error is the single typed error services return. It carries the HTTP
// status the centralized writer responds with.
type Error struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Data       any    `json:"data"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// New builds an Error with the given status and message.
func New(status int, msg string) *Error {
	return &Error{Message: msg, StatusCode: status}
}

// WithData attaches a payload and returns the same error.
func (e *Error) WithData(data any) *Error {
	e.Data = data
	return e
}

func BadRequest(msg string) *Error      { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error    { return New(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error       { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *Error        { return New(http.StatusNotFound, msg) }
func Conflict(msg string) *Error        { return New(http.StatusConflict, msg) }
func TooManyRequests(msg string) *Error { return New(http.StatusTooManyRequests, msg) }

// Internal hides the cause from the client; Write logs it.
func Internal(msg string) *Error { return New(http.StatusInternalServerError, msg) }

// Badf is BadRequest with formatting.
func Badf(format string, args ...any) *Error {
	return BadRequest(fmt.Sprintf(format, args...))
}
