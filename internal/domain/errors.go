package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrValidation wraps input that fails business rules (bad booking id, amount <= 0).
	ErrValidation = errors.New("validation error")

	ErrSessionNotFound   = errors.New("payment session not found")
	ErrPaymentInProgress = errors.New("payment already in progress")
	ErrInvalidTransition = errors.New("action not allowed in current state")
)

// ProcessorError is a card error reported synchronously by the processor.
// Its Message is safe to show to the user.
type ProcessorError struct {
	Code    string
	Message string
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return "processor: " + e.Code + ": " + e.Message
	}
	return "processor: " + e.Message
}

// APIError is a non-2xx backend response. Message is the server-provided
// "error" (or "message") field when the body had one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: status %d", e.Status)
}

// Unwrap lets errors.Is match the auth and not-found sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}
