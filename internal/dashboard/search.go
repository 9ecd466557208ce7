package dashboard

import (
	"net/url"
	"sync"
	"time"

	"github.com/mmeshcher/invoices-dashboard/internal/querystate"
)

// SearchBox применяет ввод строки поиска к URL после окна тишины.
type SearchBox struct {
	path     string
	navigate func(string)

	mu      sync.Mutex
	current url.Values

	debouncer *querystate.Debouncer[string]
}

// NewSearchBox создаёт поле поиска для страницы path с текущими параметрами current.
// navigate получает новый URL после каждого применённого ввода.
func NewSearchBox(path string, current url.Values, window time.Duration, navigate func(string)) *SearchBox {
	sb := &SearchBox{
		path:     path,
		navigate: navigate,
		current:  querystate.Encode(current, querystate.Patch{}),
	}
	sb.debouncer = querystate.NewDebouncer(window, sb.apply)
	return sb
}

// Input сообщает о новом значении поля ввода.
func (sb *SearchBox) Input(term string) {
	sb.debouncer.Trigger(term)
}

// Value возвращает строку поиска из текущего URL.
func (sb *SearchBox) Value() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return querystate.Decode(sb.current).Search
}

func (sb *SearchBox) apply(term string) {
	sb.mu.Lock()
	sb.current = querystate.Encode(sb.current, querystate.Patch{Search: &term})
	target := querystate.URL(sb.path, sb.current)
	sb.mu.Unlock()

	sb.navigate(target)
}

// Close отменяет отложенный ввод. После возврата navigate не вызывается.
func (sb *SearchBox) Close() {
	sb.debouncer.Close()
}
