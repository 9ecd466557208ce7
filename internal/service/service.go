// Package service реализует бизнес-логику панели управления счетами.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/invoices-dashboard/internal/dashboard"
	"github.com/mmeshcher/invoices-dashboard/internal/model"
	"github.com/mmeshcher/invoices-dashboard/internal/repository"
	"github.com/mmeshcher/invoices-dashboard/internal/validation"
)

// ErrInvalidCredentials возвращается при любой ошибке учётных данных,
// не раскрывая, какая именно проверка не прошла.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, name, email, passwordHash string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	CreateInvoice(ctx context.Context, inv model.Invoice) error
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, f model.InvoiceFields) error
	DeleteInvoice(ctx context.Context, id string) error
	Summary(ctx context.Context) (*model.Summary, error)
}

// Revalidator получает сигнал о том, что данные по пути устарели.
// После каждой успешной мутации сервис сигнализирует о пути списка счетов.
type Revalidator interface {
	Revalidate(path string)
}

// Service содержит бизнес-логику панели управления.
type Service struct {
	repo        Repository
	revalidator Revalidator
	hasher      PasswordHasher

	checkCredentials func(email, password string) error
	now              func() time.Time
	newID            func() string
}

// NewService создаёт новый сервис.
func NewService(repo Repository, revalidator Revalidator, hasher PasswordHasher) *Service {
	return &Service{
		repo:        repo,
		revalidator: revalidator,
		hasher:      hasher,

		checkCredentials: validation.ValidateCredentials,
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) revalidate() {
	if s.revalidator != nil {
		s.revalidator.Revalidate(dashboard.InvoicesPath)
	}
}

// CreateInvoice проверяет форму и сохраняет новый счёт с датой создания.
// При ошибке валидации возвращает *validation.Error, хранилище не затрагивается.
func (s *Service) CreateInvoice(ctx context.Context, form url.Values) (*model.Invoice, error) {
	fields, err := validation.ValidateInvoice(form, validation.ActionCreate)
	if err != nil {
		return nil, err
	}

	inv := model.Invoice{
		ID:          s.newID(),
		CustomerID:  fields.CustomerID,
		AmountCents: fields.AmountCents,
		Status:      fields.Status,
		Date:        s.today(),
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, &StorageError{Action: validation.ActionCreate, Err: err}
	}

	s.revalidate()
	return &inv, nil
}

// UpdateInvoice проверяет форму и перезаписывает клиента, сумму и статус счёта.
func (s *Service) UpdateInvoice(ctx context.Context, id string, form url.Values) error {
	fields, err := validation.ValidateInvoice(form, validation.ActionUpdate)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateInvoice(ctx, id, fields); err != nil {
		return &StorageError{Action: validation.ActionUpdate, Err: err}
	}

	s.revalidate()
	return nil
}

// DeleteInvoice удаляет счёт и возвращает подтверждение.
func (s *Service) DeleteInvoice(ctx context.Context, id string) (string, error) {
	if err := s.repo.DeleteInvoice(ctx, id); err != nil {
		return "", &StorageError{Action: validation.ActionDelete, Err: err}
	}

	s.revalidate()
	return "Deleted Invoice.", nil
}

// GetInvoice возвращает счёт для формы редактирования.
func (s *Service) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListCustomers возвращает клиентов для выбора в форме счёта.
func (s *Service) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// Summary возвращает агрегаты для главной страницы панели.
func (s *Service) Summary(ctx context.Context) (*model.Summary, error) {
	return s.repo.Summary(ctx)
}

// Authenticate проверяет учётные данные и возвращает пользователя.
// Ошибки формы, неизвестный email и неверный пароль дают ErrInvalidCredentials;
// сбои валидатора и хранилища возвращаются отдельно, обёрнутыми.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	if err := s.checkCredentials(email, password); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("check credentials: %w", err)
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	return u, nil
}

// EnsureUser создаёт пользователя, если его ещё нет.
func (s *Service) EnsureUser(ctx context.Context, name, email, password string) error {
	if err := s.checkCredentials(email, password); err != nil {
		return fmt.Errorf("ensure user %s: %w", email, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.repo.CreateUser(ctx, name, email, hash); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil
		}
		return err
	}
	return nil
}
