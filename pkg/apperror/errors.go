package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"` // transient infrastructure failure; the whole operation may be retried
	Err        error  `json:"-"` // wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger Business Rules (LED) ----

// ErrInsufficientFunds rejects a debit whose post-state would be negative.
// No mutation has been applied when this is returned.
func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Amount must be a positive decimal", http.StatusBadRequest)
}

// ErrInvariantViolation reports a detected mismatch between a balance and its
// transaction trail. It should never occur in correct operation and always
// aborts the enclosing unit of work.
func ErrInvariantViolation(err error) *AppError {
	return Wrap("LED_003", "Ledger invariant violation", http.StatusInternalServerError, err)
}

func ErrWalletNotFound() *AppError {
	return New("LED_004", "Wallet not found", http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an unexpected internal error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrStorageUnavailable marks a transient storage failure. Nothing partial was
// persisted, so the caller may retry the whole operation.
func ErrStorageUnavailable(err error) *AppError {
	e := Wrap("SYS_002", "Storage temporarily unavailable", http.StatusServiceUnavailable, err)
	e.Retryable = true
	return e
}

// Validation returns a LED_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LED_002", message, http.StatusBadRequest)
}
