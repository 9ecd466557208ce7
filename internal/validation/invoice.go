package validation

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmeshcher/invoices-dashboard/internal/model"
)

// MaxAmount задаёт наибольшую сумму счёта в долларах.
const MaxAmount = 1_000_000_000

const (
	msgCustomer       = "Please select a customer."
	msgAmount         = "Please enter an amount greater than $0."
	msgAmountTooLarge = "Amount is too large."
	msgStatus         = "Please select an invoice status."
)

// ErrInvalidAmount возвращается, если строку нельзя привести к числу.
var ErrInvalidAmount = errors.New("invalid amount")

type invoiceInput struct {
	CustomerID string  `form:"customerId" validate:"required"`
	Amount     float64 `form:"amount" validate:"gt=0,maxamount"`
	Status     string  `form:"status" validate:"oneof=pending paid"`
}

// ValidateInvoice проверяет форму создания или изменения счёта.
// При ошибке возвращает *Error и никаких данных.
func ValidateInvoice(form url.Values, action string) (model.InvoiceFields, error) {
	verr := &Error{
		Message: fmt.Sprintf("Missing Fields. Failed to %s Invoice.", action),
	}

	in := invoiceInput{
		CustomerID: strings.TrimSpace(form.Get("customerId")),
		Status:     strings.TrimSpace(form.Get("status")),
	}

	amount, err := ParseAmount(form.Get("amount"))
	if err != nil {
		verr.add("amount", msgAmount)
	}
	in.Amount = amount

	if err := collect(verr, validate.Struct(in), invoiceMessage); err != nil {
		return model.InvoiceFields{}, fmt.Errorf("validate invoice: %w", err)
	}

	cents := ToCents(in.Amount)
	if !verr.has("amount") && cents <= 0 {
		verr.add("amount", msgAmount)
	}

	if !verr.empty() {
		return model.InvoiceFields{}, verr
	}

	return model.InvoiceFields{
		CustomerID:  in.CustomerID,
		AmountCents: cents,
		Status:      model.InvoiceStatus(in.Status),
	}, nil
}

func invoiceMessage(field, tag string) string {
	switch field {
	case "customerId":
		return msgCustomer
	case "amount":
		if tag == "maxamount" {
			return msgAmountTooLarge
		}
		return msgAmount
	case "status":
		return msgStatus
	}
	return "Invalid value."
}

// ParseAmount приводит введённую сумму в долларах к числу.
// Допускаются префикс «$» и разделители тысяч.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

// ToCents переводит сумму в долларах в центы с округлением до ближайшего.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
