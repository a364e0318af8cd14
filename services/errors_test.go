package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected int
	}{
		{"invalid request", ErrInvalidRequest("bad input"), http.StatusBadRequest},
		{"not found", ErrNotFound("missing"), http.StatusNotFound},
		{"invalid state", ErrInvalidState("wrong state"), http.StatusBadRequest},
		{"conflict", ErrConflict("already answered"), http.StatusConflict},
		{"upstream", ErrUpstream("model down", errors.New("timeout")), http.StatusInternalServerError},
		{"storage", ErrStorage("db down", errors.New("connection refused")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrStorage("db down", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should survive errors.Is")
	}
	if err.Error() != "db down: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if ErrNotFound("missing").Error() != "missing" {
		t.Error("causeless error should render the message alone")
	}
}

func TestIsKind(t *testing.T) {
	err := ErrInvalidState("wrong state")

	if !IsKind(err, KindInvalidState) {
		t.Error("IsKind should match the error's own kind")
	}
	if IsKind(err, KindNotFound) {
		t.Error("IsKind should not match a different kind")
	}

	// Survives wrapping
	wrapped := fmt.Errorf("submitting answer: %w", err)
	if !IsKind(wrapped, KindInvalidState) {
		t.Error("IsKind should see through fmt.Errorf wrapping")
	}

	if IsKind(errors.New("plain"), KindStorage) {
		t.Error("plain errors have no kind")
	}
}

func TestAsAppError(t *testing.T) {
	original := ErrNotFound("missing")
	if got := AsAppError(original); got != original {
		t.Error("AppError should pass through unchanged")
	}

	plain := errors.New("raw database error")
	got := AsAppError(plain)
	if got.Kind != KindStorage {
		t.Errorf("kind = %v, want KindStorage", got.Kind)
	}
	if got.Message != "internal error" {
		t.Errorf("message = %q, raw errors must not leak into responses", got.Message)
	}
	if !errors.Is(got, plain) {
		t.Error("cause should be preserved for logging")
	}
}
