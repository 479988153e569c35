package apierr

import (
	"fmt"
	"net/http"
)

// Error carries an HTTP status and a short machine-readable code from
// the service layer up to the handlers, which unwrap it with errors.As
// and map it onto the response envelope.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// NotFound is a 404 with no underlying cause; the code alone is the
// message.
func NotFound(code string) *Error {
	return New(http.StatusNotFound, code, nil)
}

// Conflict is a 409 for state-machine violations, like approving a
// draft that was already rejected.
func Conflict(code string, format string, args ...any) *Error {
	return New(http.StatusConflict, code, fmt.Errorf(format, args...))
}
