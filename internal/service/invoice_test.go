package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniro0912/gas-invoice/internal/apperr"
	"github.com/deniro0912/gas-invoice/pkg/models"
)

// newInvoiceFixture seeds one customer so invoice creation has a valid
// reference.
func newInvoiceFixture(t *testing.T) (*fixture, *models.Customer) {
	t.Helper()

	// The clock sits after the input's issue date, so issuing an invoice
	// visibly moves the date forward.
	f := newFixture(t, time.Date(2025, 3, 20, 9, 0, 0, 0, time.Local))
	customer, err := f.customers.Create(context.Background(), models.NewCustomerInput{CompanyName: "Acme Inc"})
	require.NoError(t, err)
	return f, customer
}

func draftInput(customerID string, unitPrice int64) models.NewInvoiceInput {
	return models.NewInvoiceInput{
		CustomerID: customerID,
		Advertiser: "Acme Inc",
		Subject:    "3月分広告掲載料",
		UnitPrice:  unitPrice,
		IssueDate:  time.Date(2025, 3, 15, 0, 0, 0, 0, time.Local),
	}
}

func TestInvoiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	f, customer := newInvoiceFixture(t)

	tests := []struct {
		name   string
		mutate func(*models.NewInvoiceInput)
	}{
		{"missing customer id", func(in *models.NewInvoiceInput) { in.CustomerID = "" }},
		{"missing advertiser", func(in *models.NewInvoiceInput) { in.Advertiser = " " }},
		{"advertiser too long", func(in *models.NewInvoiceInput) { in.Advertiser = strings.Repeat("あ", 201) }},
		{"missing subject", func(in *models.NewInvoiceInput) { in.Subject = "" }},
		{"subject too long", func(in *models.NewInvoiceInput) { in.Subject = strings.Repeat("あ", 301) }},
		{"zero unit price", func(in *models.NewInvoiceInput) { in.UnitPrice = 0 }},
		{"negative unit price", func(in *models.NewInvoiceInput) { in.UnitPrice = -1 }},
		{"unit price over the cap", func(in *models.NewInvoiceInput) { in.UnitPrice = 100_000_000 }},
		{"notes too long", func(in *models.NewInvoiceInput) { in.Notes = strings.Repeat("あ", 1001) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := draftInput(customer.CustomerID, 10000)
			tt.mutate(&in)
			_, err := f.invoices.Create(ctx, in)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceValidation), "got %v", err)
		})
	}
}

func TestInvoiceCreateUnknownCustomer(t *testing.T) {
	ctx := context.Background()
	f, _ := newInvoiceFixture(t)

	_, err := f.invoices.Create(ctx, draftInput("C99999", 10000))
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeCustomerNotFound))
}

// TestInvoiceLifecycle walks an invoice through its whole life: created
// as DRAFT with derived amounts, issued, cancelled, and then refused a
// second issue because CANCELLED is terminal.
func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	f, customer := newInvoiceFixture(t)
	require.Equal(t, "C00001", customer.CustomerID)

	created, err := f.invoices.Create(ctx, draftInput(customer.CustomerID, 100000))
	require.NoError(t, err)
	assert.Equal(t, "202503-001", created.InvoiceNumber)
	assert.Equal(t, int64(100000), created.Subtotal)
	assert.Equal(t, int64(10000), created.TaxAmount)
	assert.Equal(t, int64(110000), created.TotalAmount)
	assert.Equal(t, models.StatusDraft, created.Status)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "202503-001-01", created.Items[0].ItemID)

	issued, err := f.invoices.Issue(ctx, created.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIssued, issued.Status)
	assert.True(t, issued.IssueDate.After(created.IssueDate), "issuing refreshes the issue date")

	cancelled, err := f.invoices.Cancel(ctx, created.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.invoices.Issue(ctx, created.InvoiceNumber)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceStatus))

	// The rejected transition must not have touched the stored row.
	stored, err := f.invoices.Get(ctx, created.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
}

func TestInvoiceCancelTwice(t *testing.T) {
	ctx := context.Background()
	f, customer := newInvoiceFixture(t)

	created, err := f.invoices.Create(ctx, draftInput(customer.CustomerID, 10000))
	require.NoError(t, err)

	_, err = f.invoices.Cancel(ctx, created.InvoiceNumber)
	require.NoError(t, err)

	_, err = f.invoices.Cancel(ctx, created.InvoiceNumber)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceStatus))
}

func TestInvoiceUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f, customer := newInvoiceFixture(t)

	created, err := f.invoices.Create(ctx, draftInput(customer.CustomerID, 10000))
	require.NoError(t, err)

	// DRAFT -> CANCELLED is allowed through a plain update.
	cancelledStatus := models.StatusCancelled
	updated, err := f.invoices.Update(ctx, created.InvoiceNumber, models.InvoicePatch{Status: &cancelledStatus})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	// CANCELLED -> DRAFT is not.
	draftStatus := models.StatusDraft
	_, err = f.invoices.Update(ctx, created.InvoiceNumber, models.InvoicePatch{Status: &draftStatus})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceStatus))

	// Neither is an unknown status string.
	bogus := models.InvoiceStatus("PAID")
	_, err = f.invoices.Update(ctx, created.InvoiceNumber, models.InvoicePatch{Status: &bogus})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceValidation))
}

func TestInvoiceDeleteRefusesIssued(t *testing.T) {
	ctx := context.Background()
	f, customer := newInvoiceFixture(t)

	created, err := f.invoices.Create(ctx, draftInput(customer.CustomerID, 10000))
	require.NoError(t, err)

	_, err = f.invoices.Issue(ctx, created.InvoiceNumber)
	require.NoError(t, err)

	err = f.invoices.Delete(ctx, created.InvoiceNumber)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceStatus))

	// A cancelled invoice can be deleted.
	_, err = f.invoices.Cancel(ctx, created.InvoiceNumber)
	require.NoError(t, err)
	require.NoError(t, f.invoices.Delete(ctx, created.InvoiceNumber))

	_, err = f.invoices.Get(ctx, created.InvoiceNumber)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceNotFound))
}

func TestInvoiceSetPDFURL(t *testing.T) {
	ctx := context.Background()
	f, customer := newInvoiceFixture(t)

	created, err := f.invoices.Create(ctx, draftInput(customer.CustomerID, 10000))
	require.NoError(t, err)

	_, err = f.invoices.SetPDFURL(ctx, created.InvoiceNumber, "  ")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceValidation))

	url := "https://drive.google.com/file/d/abc123/view"
	updated, err := f.invoices.SetPDFURL(ctx, created.InvoiceNumber, url)
	require.NoError(t, err)
	assert.Equal(t, url, updated.PDFURL)
}

func TestInvoiceMonthlyReport(t *testing.T) {
	ctx := context.Background()
	f, customer := newInvoiceFixture(t)

	first, err := f.invoices.Create(ctx, draftInput(customer.CustomerID, 100000))
	require.NoError(t, err)
	second, err := f.invoices.Create(ctx, draftInput(customer.CustomerID, 50000))
	require.NoError(t, err)
	third, err := f.invoices.Create(ctx, draftInput(customer.CustomerID, 30000))
	require.NoError(t, err)

	// One issued, one cancelled, one left as draft. Issue before the
	// month ends so the refreshed date stays inside March.
	_, err = f.invoices.Issue(ctx, first.InvoiceNumber)
	require.NoError(t, err)
	_, err = f.invoices.Cancel(ctx, second.InvoiceNumber)
	require.NoError(t, err)

	// An invoice in another month stays out of the report.
	april := draftInput(customer.CustomerID, 70000)
	april.IssueDate = time.Date(2025, 4, 2, 0, 0, 0, 0, time.Local)
	_, err = f.invoices.Create(ctx, april)
	require.NoError(t, err)

	report, err := f.invoices.MonthlyReport(ctx, "202503")
	require.NoError(t, err)

	assert.Equal(t, "202503", report.Month)
	assert.Equal(t, 1, report.DraftCount)
	assert.Equal(t, 1, report.IssuedCount)
	assert.Equal(t, 1, report.CancelledCount)

	// Sums cover the draft and the issued invoice only.
	assert.Equal(t, first.Subtotal+third.Subtotal, report.Subtotal)
	assert.Equal(t, first.TaxAmount+third.TaxAmount, report.TaxAmount)
	assert.Equal(t, first.TotalAmount+third.TotalAmount, report.TotalAmount)

	_, err = f.invoices.MonthlyReport(ctx, "2025-03")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceValidation))
}
