// Package domainerrors defines the coded error type shared by all services.
//
// Services construct errors with New/Wrap so the transport layer can map the
// code to an HTTP status without inspecting error strings. Codes are stable
// machine-readable identifiers and appear verbatim in JSON error envelopes.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	CodeInvalidInput         Code = "invalid_input"
	CodeNotFound             Code = "not_found"
	CodeProductNotFound      Code = "product_not_found"
	CodeOutOfStock           Code = "out_of_stock"
	CodeCatalogueUnavailable Code = "catalogue_unavailable"
	CodeStoreUnavailable     Code = "store_unavailable"
	CodeDecodeError          Code = "decode_error"
	CodeInternal             Code = "internal_error"
)

// Error carries a code plus a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches two coded errors by code so callers can use errors.Is with
// sentinel-style comparisons like errors.Is(err, domainerrors.New(CodeNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New builds a coded error with a fixed message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As. A nil err yields a plain coded error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal
// for errors that were never coded.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from a coded error, or the raw error text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ToHTTPStatus maps a code to the HTTP status the transport layer should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound, CodeProductNotFound, CodeOutOfStock:
		return http.StatusNotFound
	case CodeStoreUnavailable, CodeCatalogueUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
