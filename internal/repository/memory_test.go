package repository

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/invoices-dashboard/internal/model"
)

var (
	lee   = model.Customer{ID: "c-lee", Name: "Lee Robinson", Email: "lee@robinson.com"}
	delba = model.Customer{ID: "c-delba", Name: "Delba de Oliveira", Email: "delba@oliveira.com"}
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func newTestRepo(t *testing.T) *MemoryRepository {
	t.Helper()

	r := NewMemoryRepository(lee, delba)
	ctx := context.Background()

	invoices := []model.Invoice{
		{ID: "i1", CustomerID: lee.ID, AmountCents: 4500, Status: model.InvoiceStatusPending, Date: day(1)},
		{ID: "i2", CustomerID: delba.ID, AmountCents: 15795, Status: model.InvoiceStatusPaid, Date: day(5)},
		{ID: "i3", CustomerID: lee.ID, AmountCents: 666, Status: model.InvoiceStatusPaid, Date: day(3)},
	}
	for _, inv := range invoices {
		require.NoError(t, r.CreateInvoice(ctx, inv))
	}
	return r
}

func ids(rows []model.InvoiceRow) []string {
	res := make([]string, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.ID)
	}
	return res
}

func TestMemoryRepository_ListOrdersByDateDesc(t *testing.T) {
	r := newTestRepo(t)

	rows, err := r.ListInvoicePage(context.Background(), "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"i2", "i3", "i1"}, ids(rows))
	assert.Equal(t, "Delba de Oliveira", rows[0].Name)
}

func TestMemoryRepository_Search(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		search string
		want   []string
	}{
		{search: "lee", want: []string{"i3", "i1"}},
		{search: "LEE", want: []string{"i3", "i1"}},
		{search: "oliveira.com", want: []string{"i2"}},
		{search: "pending", want: []string{"i1"}},
		{search: "paid", want: []string{"i2", "i3"}},
		{search: "45", want: []string{"i1"}},
		{search: "$157.95", want: []string{"i2"}},
		{search: "2024-03-03", want: []string{"i3"}},
		{search: "nobody", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			rows, err := r.ListInvoicePage(ctx, tt.search, 1, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(rows))
		})
	}
}

func TestMemoryRepository_Pagination(t *testing.T) {
	r := NewMemoryRepository(lee)
	ctx := context.Background()

	for i := 1; i <= 13; i++ {
		require.NoError(t, r.CreateInvoice(ctx, model.Invoice{
			ID:          fmt.Sprintf("i%02d", i),
			CustomerID:  lee.ID,
			AmountCents: int64(i * 100),
			Status:      model.InvoiceStatusPaid,
			Date:        day(i),
		}))
	}

	pages, err := r.CountInvoicePages(ctx, "", 6)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	first, err := r.ListInvoicePage(ctx, "", 1, 6)
	require.NoError(t, err)
	assert.Len(t, first, 6)
	assert.Equal(t, "i13", first[0].ID)

	last, err := r.ListInvoicePage(ctx, "", 3, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"i01"}, ids(last))

	beyond, err := r.ListInvoicePage(ctx, "", 99, 6)
	require.NoError(t, err)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)

	for _, page := range []int{2000000000000000000, math.MaxInt} {
		far, err := r.ListInvoicePage(ctx, "", page, 6)
		require.NoError(t, err, page)
		assert.NotNil(t, far)
		assert.Empty(t, far)
	}

	none, err := r.CountInvoicePages(ctx, "zzz", 6)
	require.NoError(t, err)
	assert.Equal(t, 0, none)

	_, err = r.CountInvoicePages(ctx, "", 0)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
	_, err = r.ListInvoicePage(ctx, "", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestMemoryRepository_UpdateKeepsIDAndDate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.UpdateInvoice(ctx, "i1", model.InvoiceFields{
		CustomerID:  delba.ID,
		AmountCents: 5000,
		Status:      model.InvoiceStatusPaid,
	})
	require.NoError(t, err)

	inv, err := r.GetInvoice(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, model.Invoice{
		ID:          "i1",
		CustomerID:  delba.ID,
		AmountCents: 5000,
		Status:      model.InvoiceStatusPaid,
		Date:        day(1),
	}, *inv)
}

func TestMemoryRepository_UpdateMissing(t *testing.T) {
	r := newTestRepo(t)

	err := r.UpdateInvoice(context.Background(), "missing", model.InvoiceFields{
		CustomerID: lee.ID, AmountCents: 100, Status: model.InvoiceStatusPaid,
	})
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestMemoryRepository_RejectedWritesLeaveStateUnchanged(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.CreateInvoice(ctx, model.Invoice{ID: "x", CustomerID: "nope", AmountCents: 100, Status: model.InvoiceStatusPaid, Date: day(9)})
	assert.ErrorIs(t, err, ErrUnknownCustomer)

	err = r.CreateInvoice(ctx, model.Invoice{ID: "i1", CustomerID: lee.ID, AmountCents: 100, Status: model.InvoiceStatusPaid, Date: day(9)})
	assert.ErrorIs(t, err, ErrInvoiceExists)

	err = r.CreateInvoice(ctx, model.Invoice{ID: "y", CustomerID: lee.ID, AmountCents: 0, Status: model.InvoiceStatusPaid, Date: day(9)})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	err = r.UpdateInvoice(ctx, "i1", model.InvoiceFields{CustomerID: lee.ID, AmountCents: -1, Status: model.InvoiceStatusPaid})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	pages, err := r.CountInvoicePages(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	inv, err := r.GetInvoice(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, int64(4500), inv.AmountCents)
}

func TestMemoryRepository_DeleteIsIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.DeleteInvoice(ctx, "i1"))
	require.NoError(t, r.DeleteInvoice(ctx, "i1"))

	_, err := r.GetInvoice(ctx, "i1")
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	rows, err := r.ListInvoicePage(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.NotContains(t, ids(rows), "i1")
}

func TestMemoryRepository_Users(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	id, err := r.CreateUser(ctx, "User", "user@nextmail.com", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = r.CreateUser(ctx, "User", "user@nextmail.com", "hash")
	assert.ErrorIs(t, err, ErrUserExists)

	u, err := r.GetUserByEmail(ctx, "user@nextmail.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	_, err = r.GetUserByEmail(ctx, "other@nextmail.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryRepository_Summary(t *testing.T) {
	r := newTestRepo(t)

	s, err := r.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Summary{
		InvoiceCount:      3,
		CustomerCount:     2,
		TotalPaidCents:    16461,
		TotalPendingCents: 4500,
	}, *s)
}

func TestDemoCustomers(t *testing.T) {
	r := NewMemoryRepository(DemoCustomers()...)

	customers, err := r.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 6)
	assert.Equal(t, "Delba de Oliveira", customers[0].Name)
}
