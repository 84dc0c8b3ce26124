// Package service holds the business layer: validation, duplicate and
// lifecycle policy, and aggregation over the repositories. Services never
// touch the store directly.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deniro0912/gas-invoice/internal/apperr"
	"github.com/deniro0912/gas-invoice/internal/logger"
	"github.com/deniro0912/gas-invoice/pkg/models"
)

// CustomerReader is the read-only slice of the customer repository other
// services depend on.
type CustomerReader interface {
	FindByID(ctx context.Context, id string) (*models.Customer, error)
}

// CustomerRepo is the full customer repository surface.
type CustomerRepo interface {
	CustomerReader
	Create(ctx context.Context, in models.NewCustomerInput) (*models.Customer, error)
	FindAll(ctx context.Context) ([]*models.Customer, error)
	FindByCompanyName(ctx context.Context, name string) ([]*models.Customer, error)
	FindByFilter(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error)
	Update(ctx context.Context, id string, patch models.CustomerPatch) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
}

// InvoiceCounter is the slice of the invoice repository the customer
// service needs for its referential check.
type InvoiceCounter interface {
	FindByCustomerID(ctx context.Context, customerID string) ([]*models.Invoice, error)
}

// CustomerService validates and orchestrates customer operations.
type CustomerService struct {
	customers CustomerRepo
	invoices  InvoiceCounter
	log       zerolog.Logger
	now       func() time.Time
}

// NewCustomerService wires the service. invoices is consulted read-only
// before a customer deletion.
func NewCustomerService(customers CustomerRepo, invoices InvoiceCounter) *CustomerService {
	return &CustomerService{
		customers: customers,
		invoices:  invoices,
		log:       logger.WithComponent("customer-service"),
		now:       time.Now,
	}
}

// SetClock overrides the service's time source. Tests use it to pin the
// trailing-30-day window.
func (s *CustomerService) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates the input, rejects duplicate company names and
// persists the customer. Duplicate detection is containment-based in
// either direction, case-insensitively.
func (s *CustomerService) Create(ctx context.Context, in models.NewCustomerInput) (*models.Customer, error) {
	const op = "CustomerService.Create"

	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if err := validateCustomerFields(op, in); err != nil {
		s.logError(op, err)
		return nil, err
	}

	existing, err := s.customers.FindByCompanyName(ctx, in.CompanyName)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	if len(existing) > 0 {
		err := apperr.Newf(apperr.CodeCustomerDuplicate, op,
			"company name %q collides with existing customer %s", in.CompanyName, existing[0].CustomerID)
		s.logError(op, err)
		return nil, err
	}

	customer, err := s.customers.Create(ctx, in)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return customer, nil
}

// Get returns one customer by ID.
func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	const op = "CustomerService.Get"

	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return customer, nil
}

// List returns every customer.
func (s *CustomerService) List(ctx context.Context) ([]*models.Customer, error) {
	const op = "CustomerService.List"

	customers, err := s.customers.FindAll(ctx)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return customers, nil
}

// Search returns customers matching the filter.
func (s *CustomerService) Search(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error) {
	const op = "CustomerService.Search"

	customers, err := s.customers.FindByFilter(ctx, filter)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return customers, nil
}

// Update validates the patched fields and applies the partial update.
func (s *CustomerService) Update(ctx context.Context, id string, patch models.CustomerPatch) (*models.Customer, error) {
	const op = "CustomerService.Update"

	if err := validateCustomerPatch(op, patch); err != nil {
		s.logError(op, err)
		return nil, err
	}

	customer, err := s.customers.Update(ctx, id, patch)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}
	return customer, nil
}

// Delete removes a customer. Deletion is blocked while any invoice still
// references the customer.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	const op = "CustomerService.Delete"

	referencing, err := s.invoices.FindByCustomerID(ctx, id)
	if err != nil {
		s.logError(op, err)
		return apperr.Classify(err, op)
	}
	if len(referencing) > 0 {
		err := apperr.Newf(apperr.CodeCustomerConflict, op,
			"customer %s is referenced by %d invoice(s)", id, len(referencing)).
			WithDetails(map[string]interface{}{"invoice_count": len(referencing)})
		s.logError(op, err)
		return err
	}

	if err := s.customers.Delete(ctx, id); err != nil {
		s.logError(op, err)
		return apperr.Classify(err, op)
	}
	return nil
}

// Stats returns the customer-base summary: total count, registrations in
// the trailing 30 days, and the five most recently registered company
// names.
func (s *CustomerService) Stats(ctx context.Context) (*models.CustomerStats, error) {
	const op = "CustomerService.Stats"

	customers, err := s.customers.FindAll(ctx)
	if err != nil {
		s.logError(op, err)
		return nil, apperr.Classify(err, op)
	}

	sort.Slice(customers, func(i, j int) bool {
		return customers[i].RegisteredAt.After(customers[j].RegisteredAt)
	})

	cutoff := s.now().AddDate(0, 0, -30)
	stats := &models.CustomerStats{TotalCount: len(customers)}
	for _, c := range customers {
		if c.RegisteredAt.After(cutoff) {
			stats.RecentCount++
		}
		if len(stats.RecentCompanies) < 5 {
			stats.RecentCompanies = append(stats.RecentCompanies, c.CompanyName)
		}
	}
	return stats, nil
}

func (s *CustomerService) logError(op string, err error) {
	s.log.Error().Err(err).Str("op", op).Msg("Customer operation failed")
}

func validateCustomerFields(op string, in models.NewCustomerInput) error {
	if in.CompanyName == "" {
		return fieldError(apperr.CodeCustomerValidation, op, "companyName", "is required", in.CompanyName)
	}
	if runeLen(in.CompanyName) > maxCompanyNameLen {
		return fieldError(apperr.CodeCustomerValidation, op, "companyName", "exceeds 100 characters", in.CompanyName)
	}
	if runeLen(in.ContactPerson) > maxContactPersonLen {
		return fieldError(apperr.CodeCustomerValidation, op, "contactPerson", "exceeds 50 characters", in.ContactPerson)
	}
	if in.PostalCode != "" && !postalCodeRe.MatchString(in.PostalCode) {
		return fieldError(apperr.CodeCustomerValidation, op, "postalCode", "must match NNN-NNNN", in.PostalCode)
	}
	if in.Email != "" && !emailRe.MatchString(in.Email) {
		return fieldError(apperr.CodeCustomerValidation, op, "email", "is not a valid address", in.Email)
	}
	if in.PhoneNumber != "" && !phoneRe.MatchString(in.PhoneNumber) {
		return fieldError(apperr.CodeCustomerValidation, op, "phoneNumber", "is not a valid number", in.PhoneNumber)
	}
	return nil
}

func validateCustomerPatch(op string, patch models.CustomerPatch) error {
	in := models.NewCustomerInput{CompanyName: "-"}
	if patch.CompanyName != nil {
		trimmed := strings.TrimSpace(*patch.CompanyName)
		if trimmed == "" {
			return fieldError(apperr.CodeCustomerValidation, op, "companyName", "must not be empty", *patch.CompanyName)
		}
		in.CompanyName = trimmed
	}
	if patch.ContactPerson != nil {
		in.ContactPerson = *patch.ContactPerson
	}
	if patch.PostalCode != nil {
		in.PostalCode = *patch.PostalCode
	}
	if patch.Email != nil {
		in.Email = *patch.Email
	}
	if patch.PhoneNumber != nil {
		in.PhoneNumber = *patch.PhoneNumber
	}
	return validateCustomerFields(op, in)
}
