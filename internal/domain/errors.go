package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by the pricing, selection and checkout packages.
var (
	ErrInvalidPlan       = errors.New("invalid plan")
	ErrUnknownCurrency   = errors.New("unknown currency")
	ErrMissingPlan       = errors.New("please select a plan first")
	ErrInvalidDate       = errors.New("please select a valid activation date")
	ErrMissingPassengers = errors.New("please select at least one passenger")
	ErrAmountMismatch    = errors.New("amount does not match the quoted price")
	ErrNotConfigured     = errors.New("not configured")
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    int               `json:"code"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error constructors.

func ErrNotFound(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: msg}
}

func ErrBadRequest(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// ErrValidation reports a client-correctable input problem. The message of
// cause is surfaced to the caller.
func ErrValidation(cause error) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: cause.Error(), Err: cause}
}

// ErrFieldValidation reports every failing customer field at once.
func ErrFieldValidation(fields map[string]string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: "please check the highlighted fields", Fields: fields}
}

// ErrSignature is returned when a collaborator callback fails verification.
func ErrSignature(err error) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: "Webhook Error: " + err.Error(), Err: err}
}

// ErrCollaborator wraps a failed call to the payment or email provider. msg
// should be the provider's own message when one is available.
func ErrCollaborator(msg string, err error) *AppError {
	if msg == "" {
		msg = "Failed to create payment intent"
	}
	return &AppError{Code: http.StatusBadGateway, Message: msg, Err: err}
}

// ErrConfiguration signals a missing secret. It only fails the affected endpoint.
func ErrConfiguration(what string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: what + " not configured", Err: ErrNotConfigured}
}

func ErrInternal(msg string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: msg, Err: err}
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
