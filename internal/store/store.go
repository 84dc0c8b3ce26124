// Package store abstracts the tabular backing store. Entities live as
// positional rows in named worksheets; the store offers range reads and
// row-level writes, nothing transactional.
package store

import "context"

// Store is the row-level access port the repositories are written
// against. Row indexes are zero-based over data rows; the header row is
// invisible through this interface.
type Store interface {
	// ReadAll returns every data row of the worksheet. Rows are
	// positional arrays in the worksheet's fixed column order and may be
	// shorter than the schema when trailing cells are empty.
	ReadAll(ctx context.Context, sheet string) ([][]interface{}, error)

	// Append adds one row after the last data row.
	Append(ctx context.Context, sheet string, row []interface{}) error

	// Update rewrites the data row at index.
	Update(ctx context.Context, sheet string, index int, row []interface{}) error

	// Delete removes the data row at index, shifting later rows up.
	Delete(ctx context.Context, sheet string, index int) error
}

// Schema names a worksheet and its header row. EnsureSheets-style
// bootstrap uses it to create missing worksheets.
type Schema struct {
	Sheet   string
	Headers []string
}
