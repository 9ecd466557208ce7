// Package repository содержит реализации хранилища счетов: PostgreSQL и в памяти.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/invoices-dashboard/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvoiceNotFound возвращается, если счёт с указанным id отсутствует.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrInvoiceExists возвращается при повторной вставке счёта с тем же id.
	ErrInvoiceExists = errors.New("invoice already exists")
	// ErrUnknownCustomer возвращается, если счёт ссылается на несуществующего клиента.
	ErrUnknownCustomer = errors.New("unknown customer")
	// ErrConstraintViolation возвращается, если хранилище отклонило запись по ограничению.
	ErrConstraintViolation = errors.New("constraint violation")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// classifyWrite переводит ошибки PostgreSQL при записи счёта в ошибки репозитория.
func classifyWrite(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, ErrUnknownCustomer)
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrInvoiceExists)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrConstraintViolation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id::text`,
		name, email, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id::text, name, email, password FROM users WHERE email = $1`,
		email,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// ListCustomers возвращает всех клиентов, упорядоченных по имени.
func (r *PostgresRepository) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, name, email, image_url FROM customers ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	customers := make([]model.Customer, 0)
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.ImageURL); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return customers, nil
}

// CreateInvoice сохраняет новый счёт. Повторных попыток не делает.
func (r *PostgresRepository) CreateInvoice(ctx context.Context, inv model.Invoice) error {
	if _, err := uuid.Parse(inv.CustomerID); err != nil {
		return fmt.Errorf("insert invoice: %w", ErrUnknownCustomer)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO invoices (id, customer_id, amount, status, date) VALUES ($1, $2, $3, $4, $5)`,
		inv.ID, inv.CustomerID, inv.AmountCents, string(inv.Status), inv.Date,
	)
	if err != nil {
		return classifyWrite("insert invoice", err)
	}
	return nil
}

// GetInvoice возвращает счёт по id.
func (r *PostgresRepository) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvoiceNotFound
	}

	var (
		inv    model.Invoice
		status string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, customer_id::text, amount, status, date FROM invoices WHERE id = $1`,
		id,
	).Scan(&inv.ID, &inv.CustomerID, &inv.AmountCents, &status, &inv.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.Status = model.InvoiceStatus(status)

	return &inv, nil
}

// UpdateInvoice перезаписывает клиента, сумму и статус счёта. Id и дата не меняются.
// Если счёт не найден, возвращает ErrInvoiceNotFound.
func (r *PostgresRepository) UpdateInvoice(ctx context.Context, id string, f model.InvoiceFields) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("update invoice: %w", ErrInvoiceNotFound)
	}
	if _, err := uuid.Parse(f.CustomerID); err != nil {
		return fmt.Errorf("update invoice: %w", ErrUnknownCustomer)
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET customer_id = $2, amount = $3, status = $4 WHERE id = $1`,
		id, f.CustomerID, f.AmountCents, string(f.Status),
	)
	if err != nil {
		return classifyWrite("update invoice", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("update invoice: %w", ErrInvoiceNotFound)
	}
	return nil
}

// DeleteInvoice удаляет счёт. Удаление отсутствующего счёта не считается ошибкой.
func (r *PostgresRepository) DeleteInvoice(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// CountInvoicePages возвращает число страниц счетов, подходящих под строку поиска.
func (r *PostgresRepository) CountInvoicePages(ctx context.Context, search string, pageSize int) (int, error) {
	if pageSize < 1 {
		return 0, ErrInvalidPageSize
	}

	where, args := parseSearch(search).where(1)

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM invoices
		 JOIN customers ON invoices.customer_id = customers.id
		 WHERE `+where,
		args...,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}

	return pageCount(total, pageSize), nil
}

// ListInvoicePage возвращает страницу счетов, отсортированных по дате по убыванию.
func (r *PostgresRepository) ListInvoicePage(ctx context.Context, search string, page, pageSize int) ([]model.InvoiceRow, error) {
	if pageSize < 1 {
		return nil, ErrInvalidPageSize
	}

	offset, ok := pageOffset(page, pageSize)
	if !ok {
		return []model.InvoiceRow{}, nil
	}

	where, args := parseSearch(search).where(1)
	n := len(args)
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx,
		`SELECT invoices.id::text, invoices.customer_id::text, invoices.amount, invoices.status, invoices.date,
		        customers.name, customers.email, customers.image_url
		 FROM invoices
		 JOIN customers ON invoices.customer_id = customers.id
		 WHERE `+where+fmt.Sprintf(`
		 ORDER BY invoices.date DESC, invoices.id
		 LIMIT $%d OFFSET $%d`, n+1, n+2),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}
	defer rows.Close()

	res := make([]model.InvoiceRow, 0, pageSize)
	for rows.Next() {
		var (
			row    model.InvoiceRow
			status string
		)
		if err := rows.Scan(
			&row.ID, &row.CustomerID, &row.AmountCents, &status, &row.Date,
			&row.Name, &row.Email, &row.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		row.Status = model.InvoiceStatus(status)
		res = append(res, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// Summary возвращает агрегаты по счетам и клиентам.
func (r *PostgresRepository) Summary(ctx context.Context) (*model.Summary, error) {
	var s model.Summary
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = $1 THEN amount ELSE 0 END), 0)::bigint,
		        COALESCE(SUM(CASE WHEN status = $2 THEN amount ELSE 0 END), 0)::bigint
		 FROM invoices`,
		string(model.InvoiceStatusPaid), string(model.InvoiceStatusPending),
	).Scan(&s.InvoiceCount, &s.TotalPaidCents, &s.TotalPendingCents)
	if err != nil {
		return nil, fmt.Errorf("sum invoices: %w", err)
	}

	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&s.CustomerCount)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	return &s, nil
}
