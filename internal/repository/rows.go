// Package repository implements the spreadsheet-backed repositories.
// Every read is a full-range scan of a worksheet; every write targets one
// row located by that scan. The store offers no locking or transactions,
// so all mutations go through the retry wrapper and keep their write
// ordering explicit.
package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deniro0912/gas-invoice/internal/store"
)

// Worksheet layouts. Column order is fixed; the row mappers below and the
// header schemas must stay in sync.
const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// Schemas returns the worksheet definitions used for store bootstrap.
func Schemas(customerSheet, invoiceSheet, itemSheet string) []store.Schema {
	return []store.Schema{
		{
			Sheet: customerSheet,
			Headers: []string{
				"顧客ID", "会社名", "担当者名", "郵便番号", "住所",
				"メールアドレス", "電話番号", "登録日時", "更新日時",
			},
		},
		{
			Sheet: invoiceSheet,
			Headers: []string{
				"請求書番号", "発行日", "顧客ID", "広告主", "件名", "小計",
				"消費税額", "合計金額", "備考", "ステータス", "PDF URL",
				"作成日時", "更新日時",
			},
		},
		{
			Sheet: itemSheet,
			Headers: []string{
				"明細ID", "請求書番号", "品目名", "数量", "単位", "単価",
				"税率", "金額",
			},
		},
	}
}

// cellString returns the cell at index i as a trimmed string; cells past
// the end of a short row read as empty.
func cellString(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// cellInt64 parses the cell at index i as an integer; empty or malformed
// cells read as zero.
func cellInt64(row []interface{}, i int) int64 {
	switch v := cellAt(row, i).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	s := cellString(row, i)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return n
}

// cellFloat parses the cell at index i as a float; empty or malformed
// cells read as zero.
func cellFloat(row []interface{}, i int) float64 {
	switch v := cellAt(row, i).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	s := cellString(row, i)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// cellTime parses the cell at index i with layout; empty or malformed
// cells read as the zero time.
func cellTime(row []interface{}, i int, layout string) time.Time {
	s := cellString(row, i)
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(layout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func cellAt(row []interface{}, i int) interface{} {
	if i >= len(row) {
		return nil
	}
	return row[i]
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(layout)
}

// isEmptyRow reports whether every cell of the row is blank. The sheet is
// human editable, so stray empty rows in the middle of the range happen.
func isEmptyRow(row []interface{}) bool {
	for i := range row {
		if cellString(row, i) != "" {
			return false
		}
	}
	return true
}
