package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniro0912/gas-invoice/internal/apperr"
	"github.com/deniro0912/gas-invoice/internal/store"
	"github.com/deniro0912/gas-invoice/pkg/models"
)

func newInvoiceRepo(t *testing.T) (*InvoiceRepository, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(Schemas(testCustomerSheet, testInvoiceSheet, testItemSheet))
	repo := NewInvoiceRepository(st, testInvoiceSheet, testItemSheet, testPolicy())
	repo.SetClock(testClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)))
	return repo, st
}

func marchInput(unitPrice int64) models.NewInvoiceInput {
	return models.NewInvoiceInput{
		CustomerID: "C00001",
		Advertiser: "株式会社サンプル",
		Subject:    "2025年3月号 広告掲載",
		UnitPrice:  unitPrice,
		IssueDate:  time.Date(2025, 3, 15, 0, 0, 0, 0, time.Local),
	}
}

func TestInvoiceCreateNumberAndAmounts(t *testing.T) {
	ctx := context.Background()
	repo, _ := newInvoiceRepo(t)

	inv, err := repo.Create(ctx, marchInput(100000))
	require.NoError(t, err)

	assert.Equal(t, "202503-001", inv.InvoiceNumber)
	assert.Equal(t, models.StatusDraft, inv.Status)
	assert.Equal(t, int64(100000), inv.Subtotal)
	assert.Equal(t, int64(10000), inv.TaxAmount)
	assert.Equal(t, int64(110000), inv.TotalAmount)

	require.Len(t, inv.Items, 1)
	item := inv.Items[0]
	assert.Equal(t, "202503-001-01", item.ItemID)
	assert.Equal(t, "202503-001", item.InvoiceNumber)
	assert.Equal(t, ItemName, item.ItemName)
	assert.Equal(t, int64(1), item.Quantity)
	assert.Equal(t, ItemUnit, item.Unit)
	assert.Equal(t, int64(100000), item.UnitPrice)
	assert.Equal(t, 0.10, item.TaxRate)
	assert.Equal(t, int64(110000), item.Amount)
}

func TestInvoiceAmountsSumExactly(t *testing.T) {
	ctx := context.Background()
	repo, _ := newInvoiceRepo(t)

	// Prices whose 10% tax does not divide evenly; the floor-then-subtract
	// ordering must keep subtotal + tax == total.
	for _, price := range []int64{1, 3, 99, 101, 12345, 99_999_999} {
		inv, err := repo.Create(ctx, marchInput(price))
		require.NoError(t, err)
		assert.Equal(t, inv.TotalAmount, inv.Subtotal+inv.TaxAmount, "price %d", price)
		assert.Equal(t, price*110/100, inv.TotalAmount, "price %d", price)
	}
}

func TestInvoiceNumberSequenceScopedToMonth(t *testing.T) {
	ctx := context.Background()
	repo, _ := newInvoiceRepo(t)

	first, err := repo.Create(ctx, marchInput(1000))
	require.NoError(t, err)
	second, err := repo.Create(ctx, marchInput(2000))
	require.NoError(t, err)
	assert.Equal(t, "202503-001", first.InvoiceNumber)
	assert.Equal(t, "202503-002", second.InvoiceNumber)

	// A different month restarts at 1.
	april := marchInput(3000)
	april.IssueDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local)
	third, err := repo.Create(ctx, april)
	require.NoError(t, err)
	assert.Equal(t, "202504-001", third.InvoiceNumber)

	// Back in March the sequence continues where it left off.
	fourth, err := repo.Create(ctx, marchInput(4000))
	require.NoError(t, err)
	assert.Equal(t, "202503-003", fourth.InvoiceNumber)
}

func TestInvoiceFindByNumberIncludesItems(t *testing.T) {
	ctx := context.Background()
	repo, _ := newInvoiceRepo(t)

	created, err := repo.Create(ctx, marchInput(50000))
	require.NoError(t, err)

	found, err := repo.FindByNumber(ctx, created.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, created.InvoiceNumber, found.InvoiceNumber)
	assert.Equal(t, created.Subtotal, found.Subtotal)
	require.Len(t, found.Items, 1)
	assert.Equal(t, created.Items[0], found.Items[0])

	_, err = repo.FindByNumber(ctx, "209901-001")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceNotFound))
}

func TestInvoiceFindByCustomerID(t *testing.T) {
	ctx := context.Background()
	repo, _ := newInvoiceRepo(t)

	_, err := repo.Create(ctx, marchInput(1000))
	require.NoError(t, err)

	other := marchInput(2000)
	other.CustomerID = "C00002"
	_, err = repo.Create(ctx, other)
	require.NoError(t, err)

	invoices, err := repo.FindByCustomerID(ctx, "C00001")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "C00001", invoices[0].CustomerID)
	assert.Len(t, invoices[0].Items, 1)

	invoices, err = repo.FindByCustomerID(ctx, "C00099")
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestInvoiceFindByFilter(t *testing.T) {
	ctx := context.Background()
	repo, _ := newInvoiceRepo(t)

	in := marchInput(1000)
	in.Advertiser = "Acme Media"
	_, err := repo.Create(ctx, in)
	require.NoError(t, err)

	in = marchInput(2000)
	in.CustomerID = "C00002"
	in.IssueDate = time.Date(2025, 4, 10, 0, 0, 0, 0, time.Local)
	second, err := repo.Create(ctx, in)
	require.NoError(t, err)

	// Date range, inclusive.
	matches, err := repo.FindByFilter(ctx, models.InvoiceFilter{
		DateFrom: time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local),
		DateTo:   time.Date(2025, 4, 10, 0, 0, 0, 0, time.Local),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, second.InvoiceNumber, matches[0].InvoiceNumber)

	// Advertiser substring is case-insensitive.
	matches, err = repo.FindByFilter(ctx, models.InvoiceFilter{Advertiser: "acme"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Predicates are ANDed.
	matches, err = repo.FindByFilter(ctx, models.InvoiceFilter{
		Advertiser: "acme",
		CustomerID: "C00002",
	})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = repo.FindByFilter(ctx, models.InvoiceFilter{Status: models.StatusDraft})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestInvoiceUpdatePreservesImmutableFields(t *testing.T) {
	ctx := context.Background()
	repo, _ := newInvoiceRepo(t)

	created, err := repo.Create(ctx, marchInput(1000))
	require.NoError(t, err)

	notes := "請求先変更あり"
	status := models.StatusIssued
	updated, err := repo.Update(ctx, created.InvoiceNumber, models.InvoicePatch{
		Notes:  &notes,
		Status: &status,
	})
	require.NoError(t, err)

	assert.Equal(t, created.InvoiceNumber, updated.InvoiceNumber)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, models.StatusIssued, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	require.Len(t, updated.Items, 1)
	assert.Equal(t, created.Items[0], updated.Items[0])
}

func TestInvoiceDeleteRemovesItemsThenHeader(t *testing.T) {
	ctx := context.Background()
	repo, st := newInvoiceRepo(t)

	keep, err := repo.Create(ctx, marchInput(1000))
	require.NoError(t, err)
	doomed, err := repo.Create(ctx, marchInput(2000))
	require.NoError(t, err)

	// Extra line-item rows for the doomed invoice, as if the one-item
	// rule were relaxed; all of them must go.
	require.NoError(t, st.Append(ctx, testItemSheet, []interface{}{
		doomed.InvoiceNumber + "-02", doomed.InvoiceNumber, ItemName, "1", ItemUnit, "500", "0.10", "550",
	}))

	require.NoError(t, repo.Delete(ctx, doomed.InvoiceNumber))

	itemRows, err := st.ReadAll(ctx, testItemSheet)
	require.NoError(t, err)
	require.Len(t, itemRows, 1)
	assert.Equal(t, keep.InvoiceNumber, itemRows[0][1])

	headerRows, err := st.ReadAll(ctx, testInvoiceSheet)
	require.NoError(t, err)
	require.Len(t, headerRows, 1)

	_, err = repo.FindByNumber(ctx, doomed.InvoiceNumber)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvoiceNotFound))
}

func TestNextInvoiceNumberIgnoresForeignRows(t *testing.T) {
	issueDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	rows := [][]interface{}{
		{"202502-009"},
		{"202503-002"},
		{"draft-note"},
		{""},
		{"202503-007"},
	}
	assert.Equal(t, "202503-008", nextInvoiceNumber(rows, issueDate))
	assert.Equal(t, "202501-001", nextInvoiceNumber(rows, time.Date(2025, 1, 5, 0, 0, 0, 0, time.Local)))
}
