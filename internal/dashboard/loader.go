package dashboard

import (
	"context"
	"net/url"
	"sync"

	"github.com/mmeshcher/invoices-dashboard/internal/querystate"
)

// View описывает состояние отображения списка: заглушку загрузки, страницу или ошибку.
type View struct {
	Key     string
	Loading bool
	Page    *Page
	Err     error
}

// Loader загружает страницы для одного клиента. Новый Load отменяет
// незавершённую выборку, и её результат не передаётся.
type Loader struct {
	o    *Orchestrator
	emit func(View)

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool

	emitMu sync.Mutex
	wg     sync.WaitGroup
}

// NewLoader создаёт Loader, передающий состояния в emit. Из emit нельзя вызывать Load.
func (o *Orchestrator) NewLoader(emit func(View)) *Loader {
	return &Loader{o: o, emit: emit}
}

// Load сразу передаёт заглушку загрузки, затем результат выборки, если его не вытеснил более новый Load.
func (l *Loader) Load(ctx context.Context, q url.Values) {
	key := querystate.Decode(q).Key()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	id := l.seq
	fetchCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	l.emitMu.Lock()
	l.emit(View{Key: key, Loading: true})
	l.emitMu.Unlock()

	go func() {
		defer l.wg.Done()
		defer cancel()

		page, err := l.o.RenderInvoicesPage(fetchCtx, q)

		l.emitMu.Lock()
		defer l.emitMu.Unlock()

		if !l.current(id) {
			return
		}
		l.emit(View{Key: key, Page: page, Err: err})
	}()
}

func (l *Loader) current(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed && id == l.seq
}

// Close отменяет незавершённую выборку и ждёт завершения фоновых горутин.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()

	l.wg.Wait()
}
