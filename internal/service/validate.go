package service

import (
	"regexp"
	"unicode/utf8"

	"github.com/deniro0912/gas-invoice/internal/apperr"
)

// Field limits. Lengths count runes, matching how the sheet UI measures
// them.
const (
	maxCompanyNameLen   = 100
	maxContactPersonLen = 50
	maxAdvertiserLen    = 200
	maxSubjectLen       = 300
	maxNotesLen         = 1000
	maxUnitPrice        = 99_999_999
)

var (
	postalCodeRe = regexp.MustCompile(`^\d{3}-\d{4}$`)
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRe      = regexp.MustCompile(`^0\d{1,4}-\d{1,4}-\d{3,4}$`)
)

// fieldError builds a validation error carrying the offending field and
// value.
func fieldError(code apperr.Code, op, field, message string, value interface{}) *apperr.Error {
	return apperr.Newf(code, op, "%s: %s", field, message).
		WithDetails(map[string]interface{}{"field": field, "value": value})
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
