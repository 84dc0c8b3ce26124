package repository

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deniro0912/gas-invoice/internal/apperr"
	"github.com/deniro0912/gas-invoice/internal/logger"
	"github.com/deniro0912/gas-invoice/internal/retry"
	"github.com/deniro0912/gas-invoice/internal/store"
	"github.com/deniro0912/gas-invoice/pkg/models"
)

// customerIDPattern matches generated customer IDs and captures the
// numeric sequence.
var customerIDPattern = regexp.MustCompile(`^C(\d{5})$`)

// CustomerRepository performs CRUD over the customer worksheet and owns
// customer ID generation.
type CustomerRepository struct {
	store  store.Store
	sheet  string
	policy retry.Policy
	log    zerolog.Logger
	now    func() time.Time
}

// NewCustomerRepository creates a repository over the given worksheet.
func NewCustomerRepository(st store.Store, sheet string, policy retry.Policy) *CustomerRepository {
	return &CustomerRepository{
		store:  st,
		sheet:  sheet,
		policy: policy,
		log:    logger.WithComponent("customer-repository"),
		now:    time.Now,
	}
}

// SetClock overrides the repository's time source. Tests use it to pin
// generated timestamps.
func (r *CustomerRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Create generates the next customer ID and appends one row.
func (r *CustomerRepository) Create(ctx context.Context, in models.NewCustomerInput) (*models.Customer, error) {
	const op = "CustomerRepository.Create"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) (*models.Customer, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		now := r.now()
		customer := &models.Customer{
			CustomerID:    nextCustomerID(rows),
			CompanyName:   in.CompanyName,
			ContactPerson: in.ContactPerson,
			PostalCode:    in.PostalCode,
			Address:       in.Address,
			Email:         in.Email,
			PhoneNumber:   in.PhoneNumber,
			RegisteredAt:  now,
			UpdatedAt:     now,
		}

		if err := r.store.Append(ctx, r.sheet, customerToRow(customer)); err != nil {
			return nil, err
		}

		r.log.Info().
			Str("customer_id", customer.CustomerID).
			Str("company_name", customer.CompanyName).
			Msg("Customer created")

		return customer, nil
	})
}

// FindByID returns the customer with the given ID.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	const op = "CustomerRepository.FindByID"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) (*models.Customer, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		customer, _ := findCustomerRow(rows, id)
		if customer == nil {
			return nil, apperr.Newf(apperr.CodeCustomerNotFound, op, "customer %s not found", id)
		}
		return customer, nil
	})
}

// FindAll returns every non-empty row of the worksheet.
func (r *CustomerRepository) FindAll(ctx context.Context) ([]*models.Customer, error) {
	const op = "CustomerRepository.FindAll"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) ([]*models.Customer, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		customers := make([]*models.Customer, 0, len(rows))
		for _, row := range rows {
			if isEmptyRow(row) {
				continue
			}
			customers = append(customers, rowToCustomer(row))
		}
		return customers, nil
	})
}

// FindByCompanyName returns customers whose company name contains name or
// whose name is contained by it, case-insensitively. The containment
// semantics serve both duplicate detection and fuzzy search.
func (r *CustomerRepository) FindByCompanyName(ctx context.Context, name string) ([]*models.Customer, error) {
	const op = "CustomerRepository.FindByCompanyName"

	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, apperr.Classify(err, op)
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	var matches []*models.Customer
	for _, c := range all {
		existing := strings.ToLower(c.CompanyName)
		if strings.Contains(existing, needle) || strings.Contains(needle, existing) {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// FindByFilter returns customers matching every set predicate of the
// filter.
func (r *CustomerRepository) FindByFilter(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error) {
	const op = "CustomerRepository.FindByFilter"

	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, apperr.Classify(err, op)
	}

	name := strings.ToLower(strings.TrimSpace(filter.CompanyName))
	var matches []*models.Customer
	for _, c := range all {
		if name != "" && !strings.Contains(strings.ToLower(c.CompanyName), name) {
			continue
		}
		if !filter.RegisteredFrom.IsZero() && c.RegisteredAt.Before(filter.RegisteredFrom) {
			continue
		}
		if !filter.RegisteredTo.IsZero() && c.RegisteredAt.After(filter.RegisteredTo) {
			continue
		}
		matches = append(matches, c)
	}
	return matches, nil
}

// Update merges the patch over the stored customer and rewrites its row.
// The customer ID and RegisteredAt are never overwritten.
func (r *CustomerRepository) Update(ctx context.Context, id string, patch models.CustomerPatch) (*models.Customer, error) {
	const op = "CustomerRepository.Update"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) (*models.Customer, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		customer, index := findCustomerRow(rows, id)
		if customer == nil {
			return nil, apperr.Newf(apperr.CodeCustomerNotFound, op, "customer %s not found", id)
		}

		applyCustomerPatch(customer, patch)
		customer.UpdatedAt = r.now()

		if err := r.store.Update(ctx, r.sheet, index, customerToRow(customer)); err != nil {
			return nil, err
		}

		r.log.Info().Str("customer_id", id).Msg("Customer updated")
		return customer, nil
	})
}

// Delete removes the customer's row.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	const op = "CustomerRepository.Delete"

	return retry.DoVoid(ctx, op, r.policy, func(ctx context.Context) error {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return err
		}

		customer, index := findCustomerRow(rows, id)
		if customer == nil {
			return apperr.Newf(apperr.CodeCustomerNotFound, op, "customer %s not found", id)
		}

		if err := r.store.Delete(ctx, r.sheet, index); err != nil {
			return err
		}

		r.log.Info().Str("customer_id", id).Msg("Customer deleted")
		return nil
	})
}

// nextCustomerID scans existing rows for the highest generated sequence
// and returns its successor. Rows whose ID does not match the generated
// format are ignored.
func nextCustomerID(rows [][]interface{}) string {
	maxSeq := 0
	for _, row := range rows {
		m := customerIDPattern.FindStringSubmatch(cellString(row, 0))
		if m == nil {
			continue
		}
		if seq, err := strconv.Atoi(m[1]); err == nil && seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("C%05d", maxSeq+1)
}

func findCustomerRow(rows [][]interface{}, id string) (*models.Customer, int) {
	for i, row := range rows {
		if cellString(row, 0) == id {
			return rowToCustomer(row), i
		}
	}
	return nil, -1
}

func applyCustomerPatch(c *models.Customer, patch models.CustomerPatch) {
	if patch.CompanyName != nil {
		c.CompanyName = *patch.CompanyName
	}
	if patch.ContactPerson != nil {
		c.ContactPerson = *patch.ContactPerson
	}
	if patch.PostalCode != nil {
		c.PostalCode = *patch.PostalCode
	}
	if patch.Address != nil {
		c.Address = *patch.Address
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.PhoneNumber != nil {
		c.PhoneNumber = *patch.PhoneNumber
	}
}

func customerToRow(c *models.Customer) []interface{} {
	return []interface{}{
		c.CustomerID,
		c.CompanyName,
		c.ContactPerson,
		c.PostalCode,
		c.Address,
		c.Email,
		c.PhoneNumber,
		formatTime(c.RegisteredAt, timestampLayout),
		formatTime(c.UpdatedAt, timestampLayout),
	}
}

func rowToCustomer(row []interface{}) *models.Customer {
	return &models.Customer{
		CustomerID:    cellString(row, 0),
		CompanyName:   cellString(row, 1),
		ContactPerson: cellString(row, 2),
		PostalCode:    cellString(row, 3),
		Address:       cellString(row, 4),
		Email:         cellString(row, 5),
		PhoneNumber:   cellString(row, 6),
		RegisteredAt:  cellTime(row, 7, timestampLayout),
		UpdatedAt:     cellTime(row, 8, timestampLayout),
	}
}
