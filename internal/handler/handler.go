// Package handler содержит HTTP-обработчики панели управления счетами.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/invoices-dashboard/internal/dashboard"
	"github.com/mmeshcher/invoices-dashboard/internal/middleware"
	"github.com/mmeshcher/invoices-dashboard/internal/model"
	"github.com/mmeshcher/invoices-dashboard/internal/repository"
	"github.com/mmeshcher/invoices-dashboard/internal/service"
	"github.com/mmeshcher/invoices-dashboard/internal/validation"
)

// Сообщения, которые видит пользователь. Текст внутренних ошибок наружу не попадает.
const (
	msgInvalidCredentials = "Invalid credentials."
	msgSomethingWrong     = "Something went wrong."
	msgInvoiceNotFound    = "Invoice not found."
	msgFetchInvoices      = "Failed to fetch invoices."
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	CreateInvoice(ctx context.Context, form url.Values) (*model.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, form url.Values) error
	DeleteInvoice(ctx context.Context, id string) (string, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	Summary(ctx context.Context) (*model.Summary, error)
}

// Pages строит страницы списка счетов.
type Pages interface {
	RenderInvoicesPage(ctx context.Context, q url.Values) (*dashboard.Page, error)
	NewLoader(emit func(dashboard.View)) *dashboard.Loader
}

// Handler реализует HTTP-обработчики панели управления.
type Handler struct {
	service  Service
	pages    Pages
	logger   *zap.Logger
	sessions *middleware.SessionManager
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, pages Pages, logger *zap.Logger, sessions *middleware.SessionManager) *Handler {
	return &Handler{
		service:  s,
		pages:    pages,
		logger:   logger,
		sessions: sessions,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Errors  map[string][]string `json:"errors,omitempty"`
	Message string              `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

const loginPage = `<!doctype html>
<html><body>
<form method="post" action="/login">
<input type="email" name="email" required>
<input type="password" name="password" minlength="6" required>
<button type="submit">Log in</button>
</form>
</body></html>
`

// LoginPage отдаёт форму входа.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(loginPage))
}

// Login выполняет аутентификацию пользователя и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	u, err := h.service.Authenticate(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgInvalidCredentials})
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgSomethingWrong})
		return
	}

	if err := h.sessions.Issue(w, u); err != nil {
		h.logger.Error("issue session error", zap.Error(err), zap.String("userID", u.ID))
		h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgSomethingWrong})
		return
	}

	http.Redirect(w, r, middleware.DashboardPath, http.StatusSeeOther)
}

// Logout завершает сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

type summaryResponse struct {
	InvoiceCount  int64  `json:"numberOfInvoices"`
	CustomerCount int64  `json:"numberOfCustomers"`
	TotalPaid     string `json:"totalPaidInvoices"`
	TotalPending  string `json:"totalPendingInvoices"`
}

// Dashboard возвращает сводку для главной страницы панели.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("get summary error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Failed to fetch card data."})
		return
	}

	h.writeJSON(w, http.StatusOK, summaryResponse{
		InvoiceCount:  s.InvoiceCount,
		CustomerCount: s.CustomerCount,
		TotalPaid:     formatCurrency(s.TotalPaidCents),
		TotalPending:  formatCurrency(s.TotalPendingCents),
	})
}

// formatCurrency форматирует центы как сумму в долларах: 123456 -> "$1,234.56".
func formatCurrency(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	return fmt.Sprintf("%s$%s.%02d", sign, whole, cents%100)
}

type customerResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Customers возвращает клиентов для формы счёта.
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		h.logger.Error("list customers error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Failed to fetch all customers."})
		return
	}

	resp := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, customerResponse{ID: c.ID, Name: c.Name, Email: c.Email, ImageURL: c.ImageURL})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type invoiceRowResponse struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customerId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ImageURL    string `json:"imageUrl"`
	AmountCents int64  `json:"amount"`
	Amount      string `json:"formattedAmount"`
	Status      string `json:"status"`
	Date        string `json:"date"`
}

type pageResponse struct {
	Query       string               `json:"query"`
	CurrentPage int                  `json:"currentPage"`
	TotalPages  int                  `json:"totalPages"`
	Invoices    []invoiceRowResponse `json:"invoices"`
	Prev        string               `json:"prev,omitempty"`
	Next        string               `json:"next,omitempty"`
}

func newPageResponse(p *dashboard.Page) pageResponse {
	rows := make([]invoiceRowResponse, 0, len(p.Invoices))
	for _, inv := range p.Invoices {
		rows = append(rows, invoiceRowResponse{
			ID:          inv.ID,
			CustomerID:  inv.CustomerID,
			Name:        inv.Name,
			Email:       inv.Email,
			ImageURL:    inv.ImageURL,
			AmountCents: inv.AmountCents,
			Amount:      formatCurrency(inv.AmountCents),
			Status:      string(inv.Status),
			Date:        inv.Date.Format(model.DateLayout),
		})
	}

	return pageResponse{
		Query:       p.Query,
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		Invoices:    rows,
		Prev:        p.Prev,
		Next:        p.Next,
	}
}

// Invoices возвращает страницу списка счетов для параметров query и page.
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	p, err := h.pages.RenderInvoicesPage(r.Context(), r.URL.Query())
	if err != nil {
		h.logger.Error("render invoices page error", zap.Error(err), zap.String("query", r.URL.RawQuery))
		h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgFetchInvoices})
		return
	}

	h.writeJSON(w, http.StatusOK, newPageResponse(p))
}

type loadingEvent struct {
	Key string `json:"key"`
}

// InvoicesStream отдаёт список счетов потоком событий: сначала loading, затем page или error.
func (h *Handler) InvoicesStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// заглушка и результат одной выборки
	views := make(chan dashboard.View, 2)
	loader := h.pages.NewLoader(func(v dashboard.View) { views <- v })
	defer loader.Close()

	loader.Load(r.Context(), r.URL.Query())

	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-views:
			event, payload := "page", any(nil)
			switch {
			case v.Loading:
				event, payload = "loading", loadingEvent{Key: v.Key}
			case v.Err != nil:
				h.logger.Error("stream invoices page error", zap.Error(v.Err), zap.String("key", v.Key))
				event, payload = "error", messageResponse{Message: msgFetchInvoices}
			default:
				payload = newPageResponse(v.Page)
			}

			if err := writeEvent(w, event, payload); err != nil {
				h.logger.Warn("write event error", zap.Error(err))
				return
			}
			flusher.Flush()

			if !v.Loading {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

type invoiceResponse struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customerId"`
	AmountCents int64  `json:"amountCents"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	Date        string `json:"date"`
}

// GetInvoice возвращает счёт для формы редактирования.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			h.writeJSON(w, http.StatusNotFound, messageResponse{Message: msgInvoiceNotFound})
			return
		}
		h.logger.Error("get invoice error", zap.Error(err), zap.String("id", id))
		h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Failed to fetch invoice."})
		return
	}

	h.writeJSON(w, http.StatusOK, invoiceResponse{
		ID:          inv.ID,
		CustomerID:  inv.CustomerID,
		AmountCents: inv.AmountCents,
		Amount:      strconv.FormatFloat(float64(inv.AmountCents)/100, 'f', 2, 64),
		Status:      string(inv.Status),
		Date:        inv.Date.Format(model.DateLayout),
	})
}

// writeMutationError переводит ошибку мутации в ответ без внутренних подробностей.
func (h *Handler) writeMutationError(w http.ResponseWriter, err error, id string) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: verr.Errors, Message: verr.Message})
		return
	}

	var serr *service.StorageError
	if errors.As(err, &serr) {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			h.writeJSON(w, http.StatusNotFound, messageResponse{Message: msgInvoiceNotFound})
			return
		}
		h.logger.Error("invoice mutation error", zap.Error(err), zap.String("action", serr.Action), zap.String("id", id))
		h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: serr.Message()})
		return
	}

	h.logger.Error("invoice mutation error", zap.Error(err), zap.String("id", id))
	h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgSomethingWrong})
}

// CreateInvoice создаёт счёт из формы и перенаправляет на список.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.service.CreateInvoice(r.Context(), r.PostForm); err != nil {
		h.writeMutationError(w, err, "")
		return
	}

	http.Redirect(w, r, dashboard.InvoicesPath, http.StatusSeeOther)
}

// UpdateInvoice обновляет счёт из формы и перенаправляет на список.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateInvoice(r.Context(), id, r.PostForm); err != nil {
		h.writeMutationError(w, err, id)
		return
	}

	http.Redirect(w, r, dashboard.InvoicesPath, http.StatusSeeOther)
}

// DeleteInvoice удаляет счёт.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msg, err := h.service.DeleteInvoice(r.Context(), id)
	if err != nil {
		h.writeMutationError(w, err, id)
		return
	}

	h.writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}
