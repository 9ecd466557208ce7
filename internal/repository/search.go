package repository

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmeshcher/invoices-dashboard/internal/model"
	"github.com/mmeshcher/invoices-dashboard/internal/validation"
)

// ErrInvalidPageSize возвращается при неположительном размере страницы.
var ErrInvalidPageSize = errors.New("page size must be positive")

// searchFilter описывает разобранную строку поиска по счетам.
type searchFilter struct {
	term        string
	amountCents *int64
}

func parseSearch(raw string) searchFilter {
	f := searchFilter{term: strings.TrimSpace(raw)}

	if amount, err := validation.ParseAmount(f.term); err == nil && amount > 0 {
		cents := validation.ToCents(amount)
		f.amountCents = &cents
	}

	return f
}

// where строит условие WHERE для PostgreSQL, нумеруя параметры начиная с first.
func (f searchFilter) where(first int) (string, []any) {
	p := fmt.Sprintf("$%d", first)
	clause := "(customers.name ILIKE " + p +
		" OR customers.email ILIKE " + p +
		" OR invoices.status ILIKE " + p +
		" OR invoices.amount::text ILIKE " + p +
		" OR invoices.date::text ILIKE " + p
	args := []any{"%" + escapeLike(f.term) + "%"}

	if f.amountCents != nil {
		clause += fmt.Sprintf(" OR invoices.amount = $%d", first+1)
		args = append(args, *f.amountCents)
	}

	return clause + ")", args
}

// matches повторяет условие where для хранилища в памяти.
func (f searchFilter) matches(row model.InvoiceRow) bool {
	if f.amountCents != nil && row.AmountCents == *f.amountCents {
		return true
	}

	term := strings.ToLower(f.term)
	for _, field := range []string{
		row.Name,
		row.Email,
		string(row.Status),
		strconv.FormatInt(row.AmountCents, 10),
		row.Date.Format(model.DateLayout),
	} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func pageCount(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// pageOffset возвращает смещение страницы. ok == false, если страница так далеко,
// что смещение вместе с размером страницы не помещается в int: такая страница заведомо пуста.
func pageOffset(page, pageSize int) (offset int, ok bool) {
	if page < 1 {
		page = 1
	}
	if page-1 > (math.MaxInt-pageSize)/pageSize {
		return 0, false
	}
	return (page - 1) * pageSize, true
}
