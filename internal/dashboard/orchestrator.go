// Package dashboard собирает страницу списка счетов по состоянию из URL.
package dashboard

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/invoices-dashboard/internal/model"
	"github.com/mmeshcher/invoices-dashboard/internal/querystate"
)

// InvoicesPath задаёт путь страницы списка счетов.
const InvoicesPath = "/dashboard/invoices"

// maxCachedPages ограничивает размер кеша страниц.
const maxCachedPages = 256

// Lister описывает чтение счетов постранично.
type Lister interface {
	CountInvoicePages(ctx context.Context, search string, pageSize int) (int, error)
	ListInvoicePage(ctx context.Context, search string, page, pageSize int) ([]model.InvoiceRow, error)
}

// Page содержит данные страницы списка счетов.
type Page struct {
	Key         string
	Query       string
	CurrentPage int
	TotalPages  int
	Invoices    []model.InvoiceRow
	Prev        string
	Next        string
}

// Orchestrator строит страницы списка и кеширует их до сигнала об устаревании.
type Orchestrator struct {
	lister   Lister
	pageSize int
	logger   *zap.Logger

	mu         sync.Mutex
	cache      map[string]*Page
	generation uint64
}

// NewOrchestrator создаёт оркестратор страниц.
func NewOrchestrator(lister Lister, pageSize int, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		lister:   lister,
		pageSize: pageSize,
		logger:   logger,
		cache:    make(map[string]*Page),
	}
}

// RenderInvoicesPage возвращает страницу для параметров запроса q.
func (o *Orchestrator) RenderInvoicesPage(ctx context.Context, q url.Values) (*Page, error) {
	state := querystate.Decode(q)
	key := state.Key()

	o.mu.Lock()
	if p, ok := o.cache[key]; ok {
		o.mu.Unlock()
		return withLinks(p, q), nil
	}
	gen := o.generation
	o.mu.Unlock()

	var (
		total int
		rows  []model.InvoiceRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := o.lister.CountInvoicePages(gctx, state.Search, o.pageSize)
		if err != nil {
			return fmt.Errorf("count pages: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		r, err := o.lister.ListInvoicePage(gctx, state.Search, state.Page, o.pageSize)
		if err != nil {
			return fmt.Errorf("list page: %w", err)
		}
		rows = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := &Page{
		Key:         key,
		Query:       state.Search,
		CurrentPage: state.Page,
		TotalPages:  total,
		Invoices:    rows,
	}

	o.mu.Lock()
	// выборка, начатая до сигнала Revalidate, в кеш не попадает
	if gen == o.generation {
		if len(o.cache) >= maxCachedPages {
			o.cache = make(map[string]*Page)
		}
		o.cache[key] = p
	}
	o.mu.Unlock()

	return withLinks(p, q), nil
}

// Revalidate сбрасывает кеш, если path указывает на страницу списка счетов.
func (o *Orchestrator) Revalidate(path string) {
	if path != InvoicesPath {
		return
	}

	o.mu.Lock()
	o.generation++
	dropped := len(o.cache)
	o.cache = make(map[string]*Page)
	o.mu.Unlock()

	o.logger.Debug("invoices listing revalidated", zap.Int("dropped", dropped))
}

// withLinks возвращает копию страницы со ссылками на соседние страницы.
func withLinks(p *Page, q url.Values) *Page {
	res := *p
	res.Prev, res.Next = "", ""
	if p.CurrentPage > 1 {
		res.Prev = PageURL(q, p.CurrentPage-1)
	}
	if p.CurrentPage < p.TotalPages {
		res.Next = PageURL(q, p.CurrentPage+1)
	}
	return &res
}

// PageURL возвращает ссылку на страницу page с сохранением строки поиска.
func PageURL(q url.Values, page int) string {
	return querystate.URL(InvoicesPath, querystate.Encode(q, querystate.Patch{Page: &page}))
}
