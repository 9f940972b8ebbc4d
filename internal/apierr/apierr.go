package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes returned in response bodies. Clients branch on these,
// so they must never change once shipped.
const (
	CodeMissingCredential = "MISSING_CREDENTIAL"
	CodeInvalidCredential = "INVALID_CREDENTIAL"
	CodeMissingEmail      = "MISSING_EMAIL"
	CodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeConflict          = "CONFLICT"
	CodeStorageError      = "STORAGE_ERROR"
	CodeBadRequest        = "BAD_REQUEST"
)

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

func MissingCredential(err error) *Error {
	return New(http.StatusUnauthorized, CodeMissingCredential, err)
}

func InvalidCredential(err error) *Error {
	return New(http.StatusUnauthorized, CodeInvalidCredential, err)
}

func MissingEmail(err error) *Error {
	return New(http.StatusUnauthorized, CodeMissingEmail, err)
}

func AccountNotFound(err error) *Error {
	return New(http.StatusNotFound, CodeAccountNotFound, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Forbidden(err error) *Error {
	return New(http.StatusForbidden, CodeForbidden, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, err)
}

func Conflict(code string, err error) *Error {
	if code == "" {
		code = CodeConflict
	}
	return New(http.StatusConflict, code, err)
}

func Storage(err error) *Error {
	return New(http.StatusInternalServerError, CodeStorageError, err)
}

func BadRequest(err error) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, err)
}

// From extracts an *Error from err's chain, or wraps err as a storage-level
// failure so nothing leaks to the route layer without a status and code.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Storage(err)
}

// Is reports whether err carries the given stable code.
func Is(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
