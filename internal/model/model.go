// Package model содержит доменные сущности панели управления счетами.
package model

import "time"

// DateLayout задаёт каноничный формат даты счёта.
const DateLayout = "2006-01-02"

// User представляет пользователя панели управления.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
}

// Customer описывает клиента, которому выставляются счета.
type Customer struct {
	ID       string
	Name     string
	Email    string
	ImageURL string
}

// InvoiceStatus описывает статус оплаты счёта.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// InvoiceFields содержит изменяемые поля счёта.
type InvoiceFields struct {
	CustomerID  string
	AmountCents int64
	Status      InvoiceStatus
}

// Invoice описывает счёт. ID и Date назначаются при создании и далее не меняются.
type Invoice struct {
	ID          string
	CustomerID  string
	AmountCents int64
	Status      InvoiceStatus
	Date        time.Time
}

// Fields возвращает изменяемую часть счёта.
func (i Invoice) Fields() InvoiceFields {
	return InvoiceFields{
		CustomerID:  i.CustomerID,
		AmountCents: i.AmountCents,
		Status:      i.Status,
	}
}

// InvoiceRow описывает строку списка счетов вместе с данными клиента.
type InvoiceRow struct {
	Invoice
	Name     string
	Email    string
	ImageURL string
}

// Summary содержит агрегаты для карточек на главной странице панели.
type Summary struct {
	InvoiceCount      int64
	CustomerCount     int64
	TotalPaidCents    int64
	TotalPendingCents int64
}
