package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-dEf_123", id)

	id, err = extractSpreadsheetID("https://docs.google.com/spreadsheets/d/xyz789")
	require.NoError(t, err)
	assert.Equal(t, "xyz789", id)
}

func TestExtractSpreadsheetIDInvalid(t *testing.T) {
	for _, url := range []string{
		"",
		"https://docs.google.com/document/d/1AbC/edit",
		"not a url",
	} {
		_, err := extractSpreadsheetID(url)
		assert.Error(t, err, "url %q", url)
	}
}
