package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mmeshcher/invoices-dashboard/internal/model"
)

// MemoryRepository хранит данные в памяти процесса с той же семантикой, что и PostgresRepository.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]model.User
	customers map[string]model.Customer
	invoices  map[string]model.Invoice
}

// NewMemoryRepository создаёт репозиторий в памяти с указанными клиентами.
func NewMemoryRepository(customers ...model.Customer) *MemoryRepository {
	r := &MemoryRepository{
		users:     make(map[string]model.User),
		customers: make(map[string]model.Customer, len(customers)),
		invoices:  make(map[string]model.Invoice),
	}
	for _, c := range customers {
		r.customers[c.ID] = c
	}
	return r
}

// DemoCustomers возвращает клиентов, которыми миграции наполняют PostgreSQL.
func DemoCustomers() []model.Customer {
	return []model.Customer{
		{ID: "d6e15727-9fe1-4961-8c5b-ea44a9bd81aa", Name: "Delba de Oliveira", Email: "delba@oliveira.com", ImageURL: "/customers/delba-de-oliveira.png"},
		{ID: "3958dc9e-712f-4377-85e9-fec4b6a6442a", Name: "Lee Robinson", Email: "lee@robinson.com", ImageURL: "/customers/lee-robinson.png"},
		{ID: "3958dc9e-742f-4377-85e9-fec4b6a6442a", Name: "Hector Simpson", Email: "hector@simpson.com", ImageURL: "/customers/hector-simpson.png"},
		{ID: "76d65c26-f784-44a2-ac19-586678f7c2f2", Name: "Steven Tey", Email: "steven@tey.com", ImageURL: "/customers/steven-tey.png"},
		{ID: "cc27c14a-0acf-4f4a-a6c9-d45682c144b9", Name: "Steph Dietz", Email: "steph@dietz.com", ImageURL: "/customers/steph-dietz.png"},
		{ID: "13d07535-c59e-4157-a011-f8d2ef4e0cbb", Name: "Michael Novotny", Email: "michael@novotny.com", ImageURL: "/customers/michael-novotny.png"},
	}
}

// Close ничего не делает.
func (r *MemoryRepository) Close() error {
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *MemoryRepository) CreateUser(_ context.Context, name, email, passwordHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[email]; ok {
		return "", fmt.Errorf("%w: %s", ErrUserExists, email)
	}

	id := uuid.NewString()
	r.users[email] = model.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// ListCustomers возвращает всех клиентов, упорядоченных по имени.
func (r *MemoryRepository) ListCustomers(_ context.Context) ([]model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func checkInvoice(f model.InvoiceFields) error {
	if f.AmountCents <= 0 {
		return fmt.Errorf("%w: invoices_amount_positive", ErrConstraintViolation)
	}
	if f.Status != model.InvoiceStatusPending && f.Status != model.InvoiceStatusPaid {
		return fmt.Errorf("%w: invoices_status_known", ErrConstraintViolation)
	}
	return nil
}

// CreateInvoice сохраняет новый счёт.
func (r *MemoryRepository) CreateInvoice(_ context.Context, inv model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[inv.CustomerID]; !ok {
		return fmt.Errorf("insert invoice: %w", ErrUnknownCustomer)
	}
	if _, ok := r.invoices[inv.ID]; ok {
		return fmt.Errorf("insert invoice: %w", ErrInvoiceExists)
	}
	if err := checkInvoice(inv.Fields()); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	r.invoices[inv.ID] = inv
	return nil
}

// GetInvoice возвращает счёт по id.
func (r *MemoryRepository) GetInvoice(_ context.Context, id string) (*model.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return &inv, nil
}

// UpdateInvoice перезаписывает клиента, сумму и статус счёта.
func (r *MemoryRepository) UpdateInvoice(_ context.Context, id string, f model.InvoiceFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("update invoice: %w", ErrInvoiceNotFound)
	}
	if _, ok := r.customers[f.CustomerID]; !ok {
		return fmt.Errorf("update invoice: %w", ErrUnknownCustomer)
	}
	if err := checkInvoice(f); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}

	inv.CustomerID = f.CustomerID
	inv.AmountCents = f.AmountCents
	inv.Status = f.Status
	r.invoices[id] = inv
	return nil
}

// DeleteInvoice удаляет счёт. Удаление отсутствующего счёта не считается ошибкой.
func (r *MemoryRepository) DeleteInvoice(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.invoices, id)
	return nil
}

// matching возвращает строки, подходящие под строку поиска, в порядке выдачи.
func (r *MemoryRepository) matching(search string) []model.InvoiceRow {
	f := parseSearch(search)

	var rows []model.InvoiceRow
	for _, inv := range r.invoices {
		c, ok := r.customers[inv.CustomerID]
		if !ok {
			continue
		}
		row := model.InvoiceRow{
			Invoice:  inv,
			Name:     c.Name,
			Email:    c.Email,
			ImageURL: c.ImageURL,
		}
		if f.matches(row) {
			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return strings.Compare(rows[i].ID, rows[j].ID) < 0
	})
	return rows
}

// CountInvoicePages возвращает число страниц счетов, подходящих под строку поиска.
func (r *MemoryRepository) CountInvoicePages(_ context.Context, search string, pageSize int) (int, error) {
	if pageSize < 1 {
		return 0, ErrInvalidPageSize
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return pageCount(len(r.matching(search)), pageSize), nil
}

// ListInvoicePage возвращает страницу счетов, отсортированных по дате по убыванию.
func (r *MemoryRepository) ListInvoicePage(_ context.Context, search string, page, pageSize int) ([]model.InvoiceRow, error) {
	if pageSize < 1 {
		return nil, ErrInvalidPageSize
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.matching(search)
	offset, ok := pageOffset(page, pageSize)
	if !ok || offset >= len(rows) {
		return []model.InvoiceRow{}, nil
	}

	end := offset + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return append([]model.InvoiceRow{}, rows[offset:end]...), nil
}

// Summary возвращает агрегаты по счетам и клиентам.
func (r *MemoryRepository) Summary(_ context.Context) (*model.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := model.Summary{
		InvoiceCount:  int64(len(r.invoices)),
		CustomerCount: int64(len(r.customers)),
	}
	for _, inv := range r.invoices {
		switch inv.Status {
		case model.InvoiceStatusPaid:
			s.TotalPaidCents += inv.AmountCents
		case model.InvoiceStatusPending:
			s.TotalPendingCents += inv.AmountCents
		}
	}
	return &s, nil
}
