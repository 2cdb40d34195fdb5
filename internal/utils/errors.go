package utils

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

const (
	ErrCodeValidation = "validation_error"
	ErrCodeConflict   = "conflict"
	ErrCodeAuth       = "unauthorized"
	ErrCodeForbidden  = "forbidden"
	ErrCodeNotFound   = "not_found"
	ErrCodeInternal   = "internal_server_error"
)

// FieldErrors collects per-field validation messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// AppError carries a failure kind from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     FieldErrors
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func ValidationError(msg string, fields FieldErrors) *AppError {
	if len(fields) == 0 {
		fields = nil
	}
	return &AppError{StatusCode: http.StatusBadRequest, Code: ErrCodeValidation, Message: msg, Fields: fields}
}

func ConflictError(msg string, fields FieldErrors) *AppError {
	return &AppError{StatusCode: http.StatusConflict, Code: ErrCodeConflict, Message: msg, Fields: fields}
}

func AuthError(msg string) *AppError {
	return &AppError{StatusCode: http.StatusUnauthorized, Code: ErrCodeAuth, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{StatusCode: http.StatusForbidden, Code: ErrCodeForbidden, Message: msg}
}

func NotFoundError(msg string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Code: ErrCodeNotFound, Message: msg}
}

func InternalError(err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Code: ErrCodeInternal, Message: "Internal issue", Err: err}
}

// NotFoundOr maps gorm.ErrRecordNotFound to a NotFoundError and anything else to
// an internal error.
func NotFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundError(msg)
	}
	return InternalError(err)
}

// AsAppError unwraps err into an *AppError, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err)
}

// IsKind reports whether err is an AppError with the given code.
func IsKind(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
