// Package apperr defines the typed error hierarchy shared by the
// repositories and services. Every error that crosses a package boundary
// carries a Code, the operation it originated from, and a retryability
// flag the retry wrapper consults.
package apperr

import (
	"errors"
	"fmt"
)

// Code is the closed set of error categories.
type Code string

const (
	CodeSystem          Code = "SYSTEM_ERROR"
	CodeData            Code = "DATA_ERROR"
	CodeSheetAccess     Code = "SHEET_ACCESS_ERROR"
	CodeSheetPermission Code = "SHEET_PERMISSION_ERROR"
	CodeFolderNotFound  Code = "FOLDER_NOT_FOUND_ERROR"

	CodeCustomerNotFound   Code = "CUSTOMER_NOT_FOUND"
	CodeCustomerDuplicate  Code = "CUSTOMER_DUPLICATE"
	CodeCustomerValidation Code = "CUSTOMER_VALIDATION_ERROR"
	CodeCustomerConflict   Code = "CUSTOMER_CONFLICT"

	CodeInvoiceNotFound   Code = "INVOICE_NOT_FOUND"
	CodeInvoiceDuplicate  Code = "INVOICE_DUPLICATE"
	CodeInvoiceValidation Code = "INVOICE_VALIDATION_ERROR"
	CodeInvoiceStatus     Code = "INVOICE_STATUS_ERROR"

	CodeRender Code = "PDF_GENERATION_ERROR"
)

// Error is the typed error carried through the repository and service
// layers.
type Error struct {
	// Code categorizes the failure.
	Code Code

	// Message is a technical description, for logs only.
	Message string

	// Op is the operation that raised or classified the error
	// (e.g. "InvoiceRepository.Create").
	Op string

	// Details holds arbitrary diagnostic payload.
	Details map[string]interface{}

	// Retryable marks failures the retry wrapper may re-attempt.
	Retryable bool

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: [%s] %s: %v", e.Op, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Op, e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a non-retryable Error with the given code.
func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// Newf creates a non-retryable Error with a formatted message.
func Newf(code Code, op, format string, args ...interface{}) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches a diagnostic payload and returns the error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of err, or CodeSystem when err carries no code.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeSystem
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
