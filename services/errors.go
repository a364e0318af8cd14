package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies application errors for HTTP mapping and logging.
type ErrorKind int

const (
	// KindInvalidRequest is caller error: bad input, missing fields, empty answer
	KindInvalidRequest ErrorKind = iota
	// KindNotFound covers missing entities and entities owned by another user
	KindNotFound
	// KindInvalidState is a legal request against the wrong data state
	KindInvalidState
	// KindConflict is a lost race against an existing row, the duplicate answer insert
	KindConflict
	// KindUpstream is an AI collaborator failure (malformed output or unavailable)
	KindUpstream
	// KindStorage is a database or filesystem failure
	KindStorage
)

// AppError carries the error classification alongside a caller-safe message.
// The wrapped cause is for logs only and never reaches the response body.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status code
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusInternalServerError
	case KindStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func ErrInvalidRequest(message string) *AppError {
	return &AppError{Kind: KindInvalidRequest, Message: message}
}

func ErrNotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func ErrInvalidState(message string) *AppError {
	return &AppError{Kind: KindInvalidState, Message: message}
}

func ErrConflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func ErrUpstream(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Err: err}
}

func ErrStorage(message string, err error) *AppError {
	return &AppError{Kind: KindStorage, Message: message, Err: err}
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// AsAppError extracts the AppError from err, wrapping unclassified errors as
// storage failures so no raw error ever reaches a response body
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: KindStorage, Message: "internal error", Err: err}
}
