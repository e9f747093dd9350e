package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes used in logs, the journal and user-facing messages.
const (
	CodeNoTextFound         = "NO_TEXT_FOUND"
	CodeMalformedExtraction = "MALFORMED_EXTRACTION"
	CodeExtractionFailed    = "EXTRACTION_FAILED"
	CodeSubmitFailed        = "SUBMIT_FAILED"
	CodeListFailed          = "LIST_FAILED"
	CodeDecideFailed        = "DECIDE_FAILED"
	CodeAlreadyDecided      = "ALREADY_DECIDED"
	CodeCommandError        = "COMMAND_ERROR"
	CodeTransportTimeout    = "TRANSPORT_TIMEOUT"
	CodeConfig              = "CONFIG_ERROR"
	CodeInternal            = "INTERNAL"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")

	ErrNoTextFound         = errors.New("no text found in image")
	ErrMalformedExtraction = errors.New("malformed extraction output")
	ErrSubmitFailed        = errors.New("submit failed")
	ErrListFailed          = errors.New("list pending failed")
	ErrDecideFailed        = errors.New("decide failed")
	ErrAlreadyDecided      = errors.New("vaga already decided")
	ErrCommand             = errors.New("invalid command")
	ErrTransportTimeout    = errors.New("transport timeout")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// StoreError is a failed call to the content store. Body is kept verbatim because
// the store usually explains the rejection there.
type StoreError struct {
	Op         string // "submit" | "list" | "decide"
	StatusCode int    // 0 when the request never got a response
	Body       string
	Err        error
}

func (e *StoreError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("store %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return "store " + e.Op + ": failed"
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is maps the operation onto the taxonomy sentinels.
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrSubmitFailed:
		return e.Op == "submit"
	case ErrListFailed:
		return e.Op == "list"
	case ErrDecideFailed:
		return e.Op == "decide"
	case ErrAlreadyDecided:
		return e.Op == "decide" && (e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusNotFound)
	}
	return false
}

// IsTimeout reports whether err came from an expired deadline or a network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransportTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Code classifies err into one of the error codes. Timeouts win over the
// operation they interrupted.
func Code(err error) string {
	var ae *AppError
	switch {
	case err == nil:
		return ""
	case IsTimeout(err):
		return CodeTransportTimeout
	case errors.Is(err, ErrNoTextFound):
		return CodeNoTextFound
	case errors.Is(err, ErrMalformedExtraction):
		return CodeMalformedExtraction
	case errors.Is(err, ErrAlreadyDecided):
		return CodeAlreadyDecided
	case errors.Is(err, ErrSubmitFailed):
		return CodeSubmitFailed
	case errors.Is(err, ErrListFailed):
		return CodeListFailed
	case errors.Is(err, ErrDecideFailed):
		return CodeDecideFailed
	case errors.Is(err, ErrCommand):
		return CodeCommandError
	case errors.As(err, &ae):
		return ae.Code
	}
	return CodeInternal
}
