// Package querystate кодирует состояние поиска и пагинации в параметры URL и обратно.
//
// URL служит единственным источником правды для списка счетов: Decode и Encode
// являются чистыми функциями без скрытого состояния.
package querystate

import (
	"net/url"
	"strconv"
)

// Имена канонических параметров запроса.
const (
	SearchParam = "query"
	PageParam   = "page"
)

// State описывает состояние списка: строку поиска и номер страницы.
type State struct {
	Search string
	Page   int
}

// Key возвращает идентичность выборки для данного состояния.
func (s State) Key() string {
	return s.Search + "|" + strconv.Itoa(s.Page)
}

// Patch описывает изменение состояния. Nil-поля не меняются.
type Patch struct {
	Search *string
	Page   *int
}

// Decode извлекает состояние из параметров запроса.
func Decode(q url.Values) State {
	return State{
		Search: q.Get(SearchParam),
		Page:   parsePage(q.Get(PageParam)),
	}
}

func parsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Encode применяет patch к текущим параметрам и возвращает новые.
// Смена строки поиска всегда сбрасывает страницу на 1.
// Посторонние параметры сохраняются, current не изменяется.
func Encode(current url.Values, p Patch) url.Values {
	next := make(url.Values, len(current)+2)
	for k, v := range current {
		next[k] = append([]string(nil), v...)
	}

	cur := Decode(current)

	if p.Search != nil && *p.Search != cur.Search {
		if *p.Search == "" {
			next.Del(SearchParam)
		} else {
			next.Set(SearchParam, *p.Search)
		}
		next.Set(PageParam, "1")
		return next
	}

	if p.Page != nil {
		page := *p.Page
		if page < 1 {
			page = 1
		}
		next.Set(PageParam, strconv.Itoa(page))
	}

	if next.Get(SearchParam) == "" {
		next.Del(SearchParam)
	}

	return next
}

// URL собирает путь с каноничной строкой запроса.
func URL(path string, q url.Values) string {
	encoded := q.Encode()
	if encoded == "" {
		return path
	}
	return path + "?" + encoded
}
