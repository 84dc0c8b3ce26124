package models

import "time"

// Customer is one row of the customer worksheet.
type Customer struct {
	CustomerID    string // Generated "C" + 5-digit sequence, immutable
	CompanyName   string // Required, max 100 chars
	ContactPerson string // Optional, max 50 chars
	PostalCode    string // Optional, "NNN-NNNN"
	Address       string // Optional
	Email         string // Optional
	PhoneNumber   string // Optional, "0N...-N...-NNN(N)"
	RegisteredAt  time.Time
	UpdatedAt     time.Time
}

// CustomerPatch is a partial update. Nil fields are left untouched;
// the customer ID and RegisteredAt are never patchable.
type CustomerPatch struct {
	CompanyName   *string
	ContactPerson *string
	PostalCode    *string
	Address       *string
	Email         *string
	PhoneNumber   *string
}

// CustomerFilter narrows a customer listing. Zero values mean "no constraint";
// all set predicates are ANDed.
type CustomerFilter struct {
	CompanyName      string // Case-insensitive substring
	RegisteredFrom   time.Time
	RegisteredTo     time.Time
}

// NewCustomerInput carries the caller-supplied fields for customer creation.
type NewCustomerInput struct {
	CompanyName   string
	ContactPerson string
	PostalCode    string
	Address       string
	Email         string
	PhoneNumber   string
}

// CustomerStats summarizes the customer base.
type CustomerStats struct {
	TotalCount      int
	RecentCount     int      // Registered within the trailing 30 days
	RecentCompanies []string // Up to 5, most recently registered first
}
