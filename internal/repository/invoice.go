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

// Line-item constants. Business rules currently fix everything but the
// unit price: one item per invoice, one fixed service.
const (
	ItemIDSuffix = "-01"
	ItemName     = "広告掲載料"
	ItemUnit     = "式"
	ItemQuantity = 1
	ItemTaxRate  = 0.10
)

// invoiceNumberPattern matches generated invoice numbers and captures
// the month prefix and the sequence.
var invoiceNumberPattern = regexp.MustCompile(`^(\d{6})-(\d{3})$`)

// InvoiceRepository performs CRUD over the invoice header and line-item
// worksheets and owns invoice number generation. An invoice spans two
// sheets; the two writes are ordered (header first on create, items first
// on delete) but not atomic.
type InvoiceRepository struct {
	store     store.Store
	sheet     string // header worksheet
	itemSheet string // line-item worksheet
	policy    retry.Policy
	log       zerolog.Logger
	now       func() time.Time
}

// NewInvoiceRepository creates a repository over the given worksheets.
func NewInvoiceRepository(st store.Store, sheet, itemSheet string, policy retry.Policy) *InvoiceRepository {
	return &InvoiceRepository{
		store:     st,
		sheet:     sheet,
		itemSheet: itemSheet,
		policy:    policy,
		log:       logger.WithComponent("invoice-repository"),
		now:       time.Now,
	}
}

// SetClock overrides the repository's time source. Tests use it to pin
// generated timestamps.
func (r *InvoiceRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Create generates the monthly-scoped invoice number, computes the
// derived amounts and persists the header row followed by the single
// line-item row.
func (r *InvoiceRepository) Create(ctx context.Context, in models.NewInvoiceInput) (*models.Invoice, error) {
	const op = "InvoiceRepository.Create"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) (*models.Invoice, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		now := r.now()
		issueDate := in.IssueDate
		if issueDate.IsZero() {
			issueDate = now
		}

		number := nextInvoiceNumber(rows, issueDate)

		// Another writer may have taken the same number since the scan;
		// re-read and re-check before writing. The window shrinks but
		// does not close: the store has no conditional writes.
		recheck, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}
		for _, row := range recheck {
			if cellString(row, 0) == number {
				return nil, apperr.Newf(apperr.CodeInvoiceDuplicate, op, "invoice number %s already exists", number)
			}
		}

		// total = floor(unitPrice * 1.10); tax by subtraction so the
		// three figures always sum exactly.
		total := in.UnitPrice * 110 / 100
		tax := total - in.UnitPrice

		invoice := &models.Invoice{
			InvoiceNumber: number,
			IssueDate:     issueDate,
			CustomerID:    in.CustomerID,
			Advertiser:    in.Advertiser,
			Subject:       in.Subject,
			Subtotal:      in.UnitPrice,
			TaxAmount:     tax,
			TotalAmount:   total,
			Notes:         in.Notes,
			Status:        models.StatusDraft,
			CreatedAt:     now,
			UpdatedAt:     now,
			Items: []models.InvoiceLineItem{
				{
					ItemID:        number + ItemIDSuffix,
					InvoiceNumber: number,
					ItemName:      ItemName,
					Quantity:      ItemQuantity,
					Unit:          ItemUnit,
					UnitPrice:     in.UnitPrice,
					TaxRate:       ItemTaxRate,
					Amount:        total,
				},
			},
		}

		if err := r.store.Append(ctx, r.sheet, invoiceToRow(invoice)); err != nil {
			return nil, err
		}
		if err := r.store.Append(ctx, r.itemSheet, itemToRow(&invoice.Items[0])); err != nil {
			return nil, err
		}

		r.log.Info().
			Str("invoice_number", number).
			Str("customer_id", in.CustomerID).
			Int64("total_amount", total).
			Msg("Invoice created")

		return invoice, nil
	})
}

// FindByNumber returns the invoice with the given number, line items
// included.
func (r *InvoiceRepository) FindByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	const op = "InvoiceRepository.FindByNumber"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) (*models.Invoice, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		invoice, _ := findInvoiceRow(rows, number)
		if invoice == nil {
			return nil, apperr.Newf(apperr.CodeInvoiceNotFound, op, "invoice %s not found", number)
		}

		if err := r.attachItems(ctx, []*models.Invoice{invoice}); err != nil {
			return nil, err
		}
		return invoice, nil
	})
}

// FindByCustomerID returns every invoice referencing the customer.
func (r *InvoiceRepository) FindByCustomerID(ctx context.Context, customerID string) ([]*models.Invoice, error) {
	const op = "InvoiceRepository.FindByCustomerID"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) ([]*models.Invoice, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		var invoices []*models.Invoice
		for _, row := range rows {
			if cellString(row, 2) == customerID {
				invoices = append(invoices, rowToInvoice(row))
			}
		}

		if err := r.attachItems(ctx, invoices); err != nil {
			return nil, err
		}
		return invoices, nil
	})
}

// FindAll returns every non-empty header row with its line items.
func (r *InvoiceRepository) FindAll(ctx context.Context) ([]*models.Invoice, error) {
	const op = "InvoiceRepository.FindAll"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) ([]*models.Invoice, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		invoices := make([]*models.Invoice, 0, len(rows))
		for _, row := range rows {
			if isEmptyRow(row) {
				continue
			}
			invoices = append(invoices, rowToInvoice(row))
		}

		if err := r.attachItems(ctx, invoices); err != nil {
			return nil, err
		}
		return invoices, nil
	})
}

// FindByFilter returns invoices matching every set predicate: issue-date
// range (inclusive), customer ID equality, advertiser substring
// (case-insensitive) and status equality.
func (r *InvoiceRepository) FindByFilter(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	const op = "InvoiceRepository.FindByFilter"

	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, apperr.Classify(err, op)
	}

	advertiser := strings.ToLower(strings.TrimSpace(filter.Advertiser))
	var matches []*models.Invoice
	for _, inv := range all {
		if !filter.DateFrom.IsZero() && inv.IssueDate.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && inv.IssueDate.After(filter.DateTo) {
			continue
		}
		if filter.CustomerID != "" && inv.CustomerID != filter.CustomerID {
			continue
		}
		if advertiser != "" && !strings.Contains(strings.ToLower(inv.Advertiser), advertiser) {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		matches = append(matches, inv)
	}
	return matches, nil
}

// Update merges the patch over the stored invoice and rewrites its header
// row. The invoice number, line items and CreatedAt are never
// overwritten.
func (r *InvoiceRepository) Update(ctx context.Context, number string, patch models.InvoicePatch) (*models.Invoice, error) {
	const op = "InvoiceRepository.Update"

	return retry.Do(ctx, op, r.policy, func(ctx context.Context) (*models.Invoice, error) {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return nil, err
		}

		invoice, index := findInvoiceRow(rows, number)
		if invoice == nil {
			return nil, apperr.Newf(apperr.CodeInvoiceNotFound, op, "invoice %s not found", number)
		}

		applyInvoicePatch(invoice, patch)
		invoice.UpdatedAt = r.now()

		if err := r.store.Update(ctx, r.sheet, index, invoiceToRow(invoice)); err != nil {
			return nil, err
		}

		if err := r.attachItems(ctx, []*models.Invoice{invoice}); err != nil {
			return nil, err
		}

		r.log.Info().Str("invoice_number", number).Msg("Invoice updated")
		return invoice, nil
	})
}

// Delete removes every line-item row referencing the invoice, scanning
// from the last row backward so pending indexes stay valid, then removes
// the header row.
func (r *InvoiceRepository) Delete(ctx context.Context, number string) error {
	const op = "InvoiceRepository.Delete"

	return retry.DoVoid(ctx, op, r.policy, func(ctx context.Context) error {
		rows, err := r.store.ReadAll(ctx, r.sheet)
		if err != nil {
			return err
		}

		invoice, index := findInvoiceRow(rows, number)
		if invoice == nil {
			return apperr.Newf(apperr.CodeInvoiceNotFound, op, "invoice %s not found", number)
		}

		itemRows, err := r.store.ReadAll(ctx, r.itemSheet)
		if err != nil {
			return err
		}
		for i := len(itemRows) - 1; i >= 0; i-- {
			if cellString(itemRows[i], 1) != number {
				continue
			}
			if err := r.store.Delete(ctx, r.itemSheet, i); err != nil {
				return err
			}
		}

		if err := r.store.Delete(ctx, r.sheet, index); err != nil {
			return err
		}

		r.log.Info().Str("invoice_number", number).Msg("Invoice deleted")
		return nil
	})
}

// attachItems reads the line-item worksheet once and distributes matching
// items to the given invoices.
func (r *InvoiceRepository) attachItems(ctx context.Context, invoices []*models.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	itemRows, err := r.store.ReadAll(ctx, r.itemSheet)
	if err != nil {
		return err
	}

	byNumber := make(map[string]*models.Invoice, len(invoices))
	for _, inv := range invoices {
		byNumber[inv.InvoiceNumber] = inv
	}

	for _, row := range itemRows {
		inv, ok := byNumber[cellString(row, 1)]
		if !ok {
			continue
		}
		inv.Items = append(inv.Items, *rowToItem(row))
	}
	return nil
}

// nextInvoiceNumber scans existing headers for the highest sequence under
// the issue date's YYYYMM prefix and returns its successor. Sequences
// restart at 1 each calendar month.
func nextInvoiceNumber(rows [][]interface{}, issueDate time.Time) string {
	prefix := issueDate.Format("200601")
	maxSeq := 0
	for _, row := range rows {
		m := invoiceNumberPattern.FindStringSubmatch(cellString(row, 0))
		if m == nil || m[1] != prefix {
			continue
		}
		if seq, err := strconv.Atoi(m[2]); err == nil && seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, maxSeq+1)
}

func findInvoiceRow(rows [][]interface{}, number string) (*models.Invoice, int) {
	for i, row := range rows {
		if cellString(row, 0) == number {
			return rowToInvoice(row), i
		}
	}
	return nil, -1
}

func applyInvoicePatch(inv *models.Invoice, patch models.InvoicePatch) {
	if patch.IssueDate != nil {
		inv.IssueDate = *patch.IssueDate
	}
	if patch.Advertiser != nil {
		inv.Advertiser = *patch.Advertiser
	}
	if patch.Subject != nil {
		inv.Subject = *patch.Subject
	}
	if patch.Notes != nil {
		inv.Notes = *patch.Notes
	}
	if patch.Status != nil {
		inv.Status = *patch.Status
	}
	if patch.PDFURL != nil {
		inv.PDFURL = *patch.PDFURL
	}
}

func invoiceToRow(inv *models.Invoice) []interface{} {
	return []interface{}{
		inv.InvoiceNumber,
		formatTime(inv.IssueDate, dateLayout),
		inv.CustomerID,
		inv.Advertiser,
		inv.Subject,
		strconv.FormatInt(inv.Subtotal, 10),
		strconv.FormatInt(inv.TaxAmount, 10),
		strconv.FormatInt(inv.TotalAmount, 10),
		inv.Notes,
		string(inv.Status),
		inv.PDFURL,
		formatTime(inv.CreatedAt, timestampLayout),
		formatTime(inv.UpdatedAt, timestampLayout),
	}
}

func rowToInvoice(row []interface{}) *models.Invoice {
	return &models.Invoice{
		InvoiceNumber: cellString(row, 0),
		IssueDate:     cellTime(row, 1, dateLayout),
		CustomerID:    cellString(row, 2),
		Advertiser:    cellString(row, 3),
		Subject:       cellString(row, 4),
		Subtotal:      cellInt64(row, 5),
		TaxAmount:     cellInt64(row, 6),
		TotalAmount:   cellInt64(row, 7),
		Notes:         cellString(row, 8),
		Status:        models.InvoiceStatus(cellString(row, 9)),
		PDFURL:        cellString(row, 10),
		CreatedAt:     cellTime(row, 11, timestampLayout),
		UpdatedAt:     cellTime(row, 12, timestampLayout),
	}
}

func itemToRow(item *models.InvoiceLineItem) []interface{} {
	return []interface{}{
		item.ItemID,
		item.InvoiceNumber,
		item.ItemName,
		strconv.FormatInt(item.Quantity, 10),
		item.Unit,
		strconv.FormatInt(item.UnitPrice, 10),
		strconv.FormatFloat(item.TaxRate, 'f', 2, 64),
		strconv.FormatInt(item.Amount, 10),
	}
}

func rowToItem(row []interface{}) *models.InvoiceLineItem {
	return &models.InvoiceLineItem{
		ItemID:        cellString(row, 0),
		InvoiceNumber: cellString(row, 1),
		ItemName:      cellString(row, 2),
		Quantity:      cellInt64(row, 3),
		Unit:          cellString(row, 4),
		UnitPrice:     cellInt64(row, 5),
		TaxRate:       cellFloat(row, 6),
		Amount:        cellInt64(row, 7),
	}
}
