package domain

import (
	"errors"
	"net/http"
)

// Error codes for report errors.
const (
	CodeNotFound   = 1
	CodeValidation = 3
	CodeInternal   = 4
	CodeQuery      = 5
	CodeRender     = 6
)

// AppError represents a request-scoped error with a code, a client-safe
// message, and an optional wrapped cause.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined errors.
//
// Match categories with the Is* helpers rather than errors.Is: the helpers
// compare codes, so freshly built errors from NewAppError match too.
var (
	ErrNotFound   = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrValidation = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal   = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrQuery      = &AppError{Code: CodeQuery, Message: "query failed"}
	ErrRender     = &AppError{Code: CodeRender, Message: "unsupported output mode"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewQueryError wraps a failed statement execution. intent describes what the
// statement was for and is the only part that reaches logs as the message.
func NewQueryError(intent string, err error) *AppError {
	return NewAppError(CodeQuery, intent, err)
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

// IsQuery reports whether err is or wraps an AppError with CodeQuery.
func IsQuery(err error) bool {
	return hasCode(err, CodeQuery)
}

// IsRender reports whether err is or wraps an AppError with CodeRender.
func IsRender(err error) bool {
	return hasCode(err, CodeRender)
}

func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatusCode maps an error to an HTTP status code.
//
// Query errors map to 200: the page still renders, with an empty table.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeValidation, CodeRender:
			return http.StatusBadRequest
		case CodeQuery:
			return http.StatusOK
		case CodeInternal:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
