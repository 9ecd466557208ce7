package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/invoices-dashboard/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware панели управления.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(h.sessions.Middleware)
	r.Use(h.sessions.Gate)

	r.Get(custommiddleware.LoginPath, h.LoginPage)
	r.Post(custommiddleware.LoginPath, h.Login)
	r.Post("/logout", h.Logout)

	r.Route(custommiddleware.DashboardPath, func(r chi.Router) {
		r.Get("/", h.Dashboard)
		r.Get("/customers", h.Customers)

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.Invoices)
			r.Post("/", h.CreateInvoice)
			r.Get("/stream", h.InvoicesStream)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetInvoice)
				r.Post("/", h.UpdateInvoice)
				r.Put("/", h.UpdateInvoice)
				r.Delete("/", h.DeleteInvoice)
				r.Post("/delete", h.DeleteInvoice)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
