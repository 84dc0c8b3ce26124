package apperr

import (
	"errors"
	"strings"
)

// Classify wraps a raw error into a typed *Error. An error that already
// carries the typed shape is passed through unchanged, so classification
// is idempotent. Raw errors are mapped by message inspection: the Sheets
// and Drive client surfaces failures as plain errors whose text is the
// only signal we get.
func Classify(err error, op string) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "forbidden"):
		return &Error{
			Code:    CodeSheetPermission,
			Op:      op,
			Message: "access to the spreadsheet was denied",
			Err:     err,
		}
	case strings.Contains(msg, "drive") || strings.Contains(msg, "folder"):
		return &Error{
			Code:    CodeFolderNotFound,
			Op:      op,
			Message: "Drive folder not found",
			Err:     err,
		}
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") ||
		strings.Contains(msg, "spreadsheet") || strings.Contains(msg, "sheet"):
		return &Error{
			Code:      CodeSheetAccess,
			Op:        op,
			Message:   "transient spreadsheet access failure",
			Retryable: true,
			Err:       err,
		}
	}

	return &Error{
		Code:    CodeSystem,
		Op:      op,
		Message: "unexpected error",
		Err:     err,
	}
}
