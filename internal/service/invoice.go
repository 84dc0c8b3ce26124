package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deniro0912/gas-invoice/internal/apperr"
	"github.com/deniro0912/gas-invoice/internal/logger"
	"github.com/deniro0912/gas-invoice/pkg/models"
)

// InvoiceRepo is the invoice repository surface the service depends on.
type InvoiceRepo interface {
	Create(ctx context.Context, in models.NewInvoiceInput) (*models.Invoice, error)
	FindByNumber(ctx context.Context, number string) (*models.Invoice, error)
	FindByCustomerID(ctx context.Context, customerID string) ([]*models.Invoice, error)
	FindAll(ctx context.Context) ([]*models.Invoice, error)
	FindByFilter(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error)
	Update(ctx context.Context, number string, patch models.InvoicePatch) (*models.Invoice, error)
	Delete(ctx context.Context, number string) error
}

var monthRe = regexp.MustCompile(`^\d{6}$`)

// InvoiceService validates invoice input, enforces the status lifecycle
// and orchestrates the invoice repository, consulting the customer
// repository read-only.
type InvoiceService struct {
	invoices  InvoiceRepo
	customers CustomerReader
	log       zerolog.Logger
	now       func() time.Time
}

// NewInvoiceService wires the service.
func NewInvoiceService(invoices InvoiceRepo, customers CustomerReader) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		customers: customers,
		log:       logger.WithComponent("invoice-service"),
		now:       time.Now,
	}
}

// SetClock overrides the service's time source. Tests use it to pin the
// refreshed issue date.
func (s *InvoiceService) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates the request, confirms the referenced customer exists
// and persists a DRAFT invoice with its generated number and derived
// amounts.
func (s *InvoiceService) Create(ctx context.Context, in models.NewInvoiceInput) (*models.Invoice, error) {
	const op = "InvoiceService.Create"

	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.Advertiser = strings.TrimSpace(in.Advertiser)
	in.Subject = strings.TrimSpace(in.Subject)

	if err := validateInvoiceFields(op, in); err != nil {
		s.logError(op, err)
		return nil, err
	}

	if _, err := s.customers.FindByID(ctx, in.CustomerID); err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}

	invoice, err := s.invoices.Create(ctx, in)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return invoice, nil
}

// Get returns one invoice by number.
func (s *InvoiceService) Get(ctx context.Context, number string) (*models.Invoice, error) {
	const op = "InvoiceService.Get"

	invoice, err := s.invoices.FindByNumber(ctx, number)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return invoice, nil
}

// List returns every invoice.
func (s *InvoiceService) List(ctx context.Context) ([]*models.Invoice, error) {
	const op = "InvoiceService.List"

	invoices, err := s.invoices.FindAll(ctx)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return invoices, nil
}

// Search returns invoices matching the filter.
func (s *InvoiceService) Search(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	const op = "InvoiceService.Search"

	invoices, err := s.invoices.FindByFilter(ctx, filter)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return invoices, nil
}

// Update applies a partial update. A status change is checked against the
// transition table before any write happens.
func (s *InvoiceService) Update(ctx context.Context, number string, patch models.InvoicePatch) (*models.Invoice, error) {
	const op = "InvoiceService.Update"

	if err := validateInvoicePatch(op, patch); err != nil {
		s.logError(op, err)
		return nil, err
	}

	if patch.Status != nil {
		current, err := s.invoices.FindByNumber(ctx, number)
		if err != nil {
			s.logError(op, err)
			return nil, apperr.Classify(err, op)
		}
		if *patch.Status != current.Status && !current.Status.CanTransitionTo(*patch.Status) {
			err := apperr.Newf(apperr.CodeInvoiceStatus, op,
				"invoice %s cannot move from %s to %s", number, current.Status, *patch.Status)
			s.logError(op, err)
			return nil, err
		}
	}

	invoice, err := s.invoices.Update(ctx, number, patch)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return invoice, nil
}

// Issue moves a DRAFT invoice to ISSUED and refreshes its issue date.
func (s *InvoiceService) Issue(ctx context.Context, number string) (*models.Invoice, error) {
	const op = "InvoiceService.Issue"

	current, err := s.invoices.FindByNumber(ctx, number)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	if current.Status != models.StatusDraft {
		err := apperr.Newf(apperr.CodeInvoiceStatus, op,
			"invoice %s is %s, only DRAFT invoices can be issued", number, current.Status)
		s.logError(op, err)
		return nil, err
	}

	status := models.StatusIssued
	issueDate := s.now()
	invoice, err := s.invoices.Update(ctx, number, models.InvoicePatch{
		Status:    &status,
		IssueDate: &issueDate,
	})
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}

	s.log.Info().Str("invoice_number", number).Msg("Invoice issued")
	return invoice, nil
}

// Cancel moves an invoice to CANCELLED. Cancelling an already cancelled
// invoice is an error; CANCELLED is terminal.
func (s *InvoiceService) Cancel(ctx context.Context, number string) (*models.Invoice, error) {
	const op = "InvoiceService.Cancel"

	current, err := s.invoices.FindByNumber(ctx, number)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	if current.Status == models.StatusCancelled {
		err := apperr.Newf(apperr.CodeInvoiceStatus, op, "invoice %s is already cancelled", number)
		s.logError(op, err)
		return nil, err
	}

	status := models.StatusCancelled
	invoice, err := s.invoices.Update(ctx, number, models.InvoicePatch{Status: &status})
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}

	s.log.Info().Str("invoice_number", number).Msg("Invoice cancelled")
	return invoice, nil
}

// Delete removes an invoice and its line items. Issued invoices must be
// cancelled, never deleted.
func (s *InvoiceService) Delete(ctx context.Context, number string) error {
	const op = "InvoiceService.Delete"

	current, err := s.invoices.FindByNumber(ctx, number)
	if err != nil {
		s.logError(op, err)
		return apperr.Classify(err, op)
	}
	if current.Status == models.StatusIssued {
		err := apperr.Newf(apperr.CodeInvoiceStatus, op,
			"invoice %s is issued; cancel it instead of deleting", number)
		s.logError(op, err)
		return err
	}

	if err := s.invoices.Delete(ctx, number); err != nil {
		s.logError(op, err)
		return apperr.Classify(err, op)
	}
	return nil
}

// SetPDFURL stores the rendered document's URL on the invoice. The
// rendering pipeline calls this after producing the file.
func (s *InvoiceService) SetPDFURL(ctx context.Context, number, url string) (*models.Invoice, error) {
	const op = "InvoiceService.SetPDFURL"

	if strings.TrimSpace(url) == "" {
		err := fieldError(apperr.CodeInvoiceValidation, op, "pdfUrl", "must not be empty", url)
		s.logError(op, err)
		return nil, err
	}

	invoice, err := s.invoices.Update(ctx, number, models.InvoicePatch{PDFURL: &url})
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return invoice, nil
}

// MonthlyReport aggregates the invoices of one calendar month ("YYYYMM"):
// counts per status and amount sums over non-cancelled invoices.
func (s *InvoiceService) MonthlyReport(ctx context.Context, month string) (*models.MonthlyReport, error) {
	const op = "InvoiceService.MonthlyReport"

	if !monthRe.MatchString(month) {
		err := fieldError(apperr.CodeInvoiceValidation, op, "month", "must match YYYYMM", month)
		s.logError(op, err)
		return nil, err
	}

	from, err := time.ParseInLocation("200601", month, time.Local)
	if err != nil {
		err := fieldError(apperr.CodeInvoiceValidation, op, "month", "is not a valid month", month)
		s.logError(op, err)
		return nil, err
	}
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	invoices, err := s.invoices.FindByFilter(ctx, models.InvoiceFilter{DateFrom: from, DateTo: to})
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}

	report := &models.MonthlyReport{Month: month}
	for _, inv := range invoices {
		switch inv.Status {
		case models.StatusDraft:
			report.DraftCount++
		case models.StatusIssued:
			report.IssuedCount++
		case models.StatusCancelled:
			report.CancelledCount++
			continue
		}
		report.Subtotal += inv.Subtotal
		report.TaxAmount += inv.TaxAmount
		report.TotalAmount += inv.TotalAmount
	}
	return report, nil
}

func (s *InvoiceService) logError(op string, err error) {
	s.log.Error().Err(err).Str("op", op).Msg("Invoice operation failed")
}

func validateInvoiceFields(op string, in models.NewInvoiceInput) error {
	if in.CustomerID == "" {
		return fieldError(apperr.CodeInvoiceValidation, op, "customerId", "is required", in.CustomerID)
	}
	if in.Advertiser == "" {
		return fieldError(apperr.CodeInvoiceValidation, op, "advertiser", "is required", in.Advertiser)
	}
	if runeLen(in.Advertiser) > maxAdvertiserLen {
		return fieldError(apperr.CodeInvoiceValidation, op, "advertiser", "exceeds 200 characters", in.Advertiser)
	}
	if in.Subject == "" {
		return fieldError(apperr.CodeInvoiceValidation, op, "subject", "is required", in.Subject)
	}
	if runeLen(in.Subject) > maxSubjectLen {
		return fieldError(apperr.CodeInvoiceValidation, op, "subject", "exceeds 300 characters", in.Subject)
	}
	if in.UnitPrice <= 0 {
		return fieldError(apperr.CodeInvoiceValidation, op, "unitPrice", "must be a positive integer", in.UnitPrice)
	}
	if in.UnitPrice > maxUnitPrice {
		return fieldError(apperr.CodeInvoiceValidation, op, "unitPrice", "exceeds 99,999,999", in.UnitPrice)
	}
	if runeLen(in.Notes) > maxNotesLen {
		return fieldError(apperr.CodeInvoiceValidation, op, "notes", "exceeds 1000 characters", in.Notes)
	}
	return nil
}

func validateInvoicePatch(op string, patch models.InvoicePatch) error {
	if patch.Advertiser != nil {
		trimmed := strings.TrimSpace(*patch.Advertiser)
		if trimmed == "" {
			return fieldError(apperr.CodeInvoiceValidation, op, "advertiser", "must not be empty", *patch.Advertiser)
		}
		if runeLen(trimmed) > maxAdvertiserLen {
			return fieldError(apperr.CodeInvoiceValidation, op, "advertiser", "exceeds 200 characters", trimmed)
		}
	}
	if patch.Subject != nil {
		trimmed := strings.TrimSpace(*patch.Subject)
		if trimmed == "" {
			return fieldError(apperr.CodeInvoiceValidation, op, "subject", "must not be empty", *patch.Subject)
		}
		if runeLen(trimmed) > maxSubjectLen {
			return fieldError(apperr.CodeInvoiceValidation, op, "subject", "exceeds 300 characters", trimmed)
		}
	}
	if patch.Notes != nil && runeLen(*patch.Notes) > maxNotesLen {
		return fieldError(apperr.CodeInvoiceValidation, op, "notes", "exceeds 1000 characters", *patch.Notes)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return fieldError(apperr.CodeInvoiceValidation, op, "status", "is not a known status", string(*patch.Status))
	}
	return nil
}
