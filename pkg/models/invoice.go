package models

import "time"

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusIssued    InvoiceStatus = "ISSUED"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may move to next.
// DRAFT may become ISSUED or CANCELLED; ISSUED may become CANCELLED;
// CANCELLED is terminal.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusIssued || next == StatusCancelled
	case StatusIssued:
		return next == StatusCancelled
	}
	return false
}

// Invoice is one header row of the invoice worksheet plus its line items.
// Amounts are integer yen.
type Invoice struct {
	InvoiceNumber string // Generated "YYYYMM-NNN", immutable
	IssueDate     time.Time
	CustomerID    string // References Customer.CustomerID
	Advertiser    string // Required, max 200 chars
	Subject       string // Required, max 300 chars
	Items         []InvoiceLineItem
	Subtotal      int64
	TaxAmount     int64
	TotalAmount   int64
	Notes         string // Optional, max 1000 chars
	Status        InvoiceStatus
	PDFURL        string // Set by the rendering pipeline after issue
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvoiceLineItem is one row of the line-item worksheet. Current business
// rules allow exactly one item per invoice, with a fixed name, unit and
// quantity; the unit price is the only caller-supplied amount.
type InvoiceLineItem struct {
	ItemID        string // InvoiceNumber + "-01"
	InvoiceNumber string
	ItemName      string
	Quantity      int64
	Unit          string
	UnitPrice     int64
	TaxRate       float64
	Amount        int64 // UnitPrice with tax, floored
}

// NewInvoiceInput carries the caller-supplied fields for invoice creation.
type NewInvoiceInput struct {
	CustomerID string
	Advertiser string
	Subject    string
	UnitPrice  int64
	Notes      string
	IssueDate  time.Time // Zero means "now"
}

// InvoicePatch is a partial update. Nil fields are left untouched; the
// invoice number, line items and CreatedAt are never patchable.
type InvoicePatch struct {
	IssueDate  *time.Time
	Advertiser *string
	Subject    *string
	Notes      *string
	Status     *InvoiceStatus
	PDFURL     *string
}

// InvoiceFilter narrows an invoice listing. Zero values mean "no
// constraint"; all set predicates are ANDed.
type InvoiceFilter struct {
	DateFrom   time.Time // Inclusive, against IssueDate
	DateTo     time.Time // Inclusive
	CustomerID string    // Exact match
	Advertiser string    // Case-insensitive substring
	Status     InvoiceStatus
}

// MonthlyReport aggregates the invoices of one calendar month.
// The sums exclude cancelled invoices.
type MonthlyReport struct {
	Month          string // "YYYYMM"
	DraftCount     int
	IssuedCount    int
	CancelledCount int
	Subtotal       int64
	TaxAmount      int64
	TotalAmount    int64
}
