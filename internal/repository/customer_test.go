package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniro0912/gas-invoice/internal/apperr"
	"github.com/deniro0912/gas-invoice/internal/retry"
	"github.com/deniro0912/gas-invoice/internal/store"
	"github.com/deniro0912/gas-invoice/pkg/models"
)

const (
	testCustomerSheet = "顧客マスタ"
	testInvoiceSheet  = "請求書"
	testItemSheet     = "請求明細"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: 0}
}

// testClock returns whole-second ticks so values survive the worksheet's
// timestamp precision.
func testClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newCustomerRepo(t *testing.T) (*CustomerRepository, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(Schemas(testCustomerSheet, testInvoiceSheet, testItemSheet))
	repo := NewCustomerRepository(st, testCustomerSheet, testPolicy())
	repo.SetClock(testClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)))
	return repo, st
}

func TestCustomerCreateGeneratesSequentialIDs(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCustomerRepo(t)

	var prev string
	for i := 1; i <= 12; i++ {
		c, err := repo.Create(ctx, models.NewCustomerInput{CompanyName: fmt.Sprintf("会社%d", i)})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("C%05d", i), c.CustomerID)
		assert.Greater(t, c.CustomerID, prev)
		prev = c.CustomerID
	}
}

func TestCustomerCreateSkipsForeignIDs(t *testing.T) {
	ctx := context.Background()
	repo, st := newCustomerRepo(t)

	// Hand-edited rows with non-generated IDs must not disturb the
	// sequence.
	require.NoError(t, st.Append(ctx, testCustomerSheet, []interface{}{"LEGACY-1", "旧会社"}))
	require.NoError(t, st.Append(ctx, testCustomerSheet, []interface{}{"C00007", "既存会社"}))

	c, err := repo.Create(ctx, models.NewCustomerInput{CompanyName: "新会社"})
	require.NoError(t, err)
	assert.Equal(t, "C00008", c.CustomerID)
}

func TestCustomerReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCustomerRepo(t)

	created, err := repo.Create(ctx, models.NewCustomerInput{
		CompanyName:   "株式会社サンプル",
		ContactPerson: "山田太郎",
		PostalCode:    "100-0001",
		Address:       "東京都千代田区1-1",
		Email:         "info@example.co.jp",
		PhoneNumber:   "03-1234-5678",
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestCustomerFindByIDNotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCustomerRepo(t)

	_, err := repo.FindByID(ctx, "C99999")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeCustomerNotFound))
}

func TestCustomerFindByCompanyNameContainment(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCustomerRepo(t)

	_, err := repo.Create(ctx, models.NewCustomerInput{CompanyName: "Acme Inc"})
	require.NoError(t, err)

	// Existing name contains the query.
	matches, err := repo.FindByCompanyName(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Query contains the existing name.
	matches, err = repo.FindByCompanyName(ctx, "ACME INC TOKYO")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = repo.FindByCompanyName(ctx, "globex")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCustomerFindByFilter(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCustomerRepo(t)

	for _, name := range []string{"会社A", "会社B", "別組織"} {
		_, err := repo.Create(ctx, models.NewCustomerInput{CompanyName: name})
		require.NoError(t, err)
	}

	matches, err := repo.FindByFilter(ctx, models.CustomerFilter{CompanyName: "会社"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	// Registration window: only the first customer registered before the
	// second one's timestamp.
	first, err := repo.FindByID(ctx, "C00001")
	require.NoError(t, err)
	matches, err = repo.FindByFilter(ctx, models.CustomerFilter{RegisteredTo: first.RegisteredAt})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestCustomerUpdateMergesPatch(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCustomerRepo(t)

	created, err := repo.Create(ctx, models.NewCustomerInput{
		CompanyName: "株式会社サンプル",
		Email:       "old@example.co.jp",
	})
	require.NoError(t, err)

	email := "new@example.co.jp"
	updated, err := repo.Update(ctx, created.CustomerID, models.CustomerPatch{Email: &email})
	require.NoError(t, err)

	assert.Equal(t, created.CustomerID, updated.CustomerID)
	assert.Equal(t, "株式会社サンプル", updated.CompanyName)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, created.RegisteredAt, updated.RegisteredAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	found, err := repo.FindByID(ctx, created.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, updated, found)
}

func TestCustomerUpdateNotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCustomerRepo(t)

	name := "x"
	_, err := repo.Update(ctx, "C00042", models.CustomerPatch{CompanyName: &name})
	assert.True(t, apperr.HasCode(err, apperr.CodeCustomerNotFound))
}

func TestCustomerDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCustomerRepo(t)

	a, err := repo.Create(ctx, models.NewCustomerInput{CompanyName: "会社A"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, models.NewCustomerInput{CompanyName: "会社B"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, a.CustomerID))

	_, err = repo.FindByID(ctx, a.CustomerID)
	assert.True(t, apperr.HasCode(err, apperr.CodeCustomerNotFound))

	remaining, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, b.CustomerID, remaining[0].CustomerID)
}

func TestCustomerRetryOnTransientFailure(t *testing.T) {
	ctx := context.Background()
	repo, st := newCustomerRepo(t)

	st.FailNext = errors.New("spreadsheet read timeout")
	c, err := repo.Create(ctx, models.NewCustomerInput{CompanyName: "会社A"})
	require.NoError(t, err)
	assert.Equal(t, "C00001", c.CustomerID)
}

func TestCustomerPermissionFailureNotRetried(t *testing.T) {
	ctx := context.Background()
	repo, st := newCustomerRepo(t)

	st.FailNext = errors.New("the caller does not have permission")
	_, err := repo.FindAll(ctx)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeSheetPermission))
}
