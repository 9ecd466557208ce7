package querystate

import (
	"sync"
	"time"
)

// DebounceWindow задаёт период тишины ввода, после которого поиск применяется.
const DebounceWindow = 300 * time.Millisecond

// Debouncer откладывает вызов fn до истечения окна тишины.
// Каждый Trigger отменяет ожидающий вызов и запускает окно заново,
// срабатывает только последнее значение.
type Debouncer[T any] struct {
	window time.Duration
	fn     func(T)

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	closed bool

	// fireMu удерживается на время вызова fn, чтобы Close мог дождаться его завершения.
	fireMu sync.Mutex
}

// NewDebouncer создаёт Debouncer с указанным окном.
func NewDebouncer[T any](window time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		window: window,
		fn:     fn,
	}
}

// Trigger планирует вызов fn(v) после окна тишины.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.seq++
	id := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		d.fire(id, v)
	})
}

func (d *Debouncer[T]) fire(id uint64, v T) {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()

	d.mu.Lock()
	current := !d.closed && id == d.seq
	d.mu.Unlock()

	if current {
		d.fn(v)
	}
}

// Cancel отменяет ожидающий вызов, не закрывая Debouncer.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Close отменяет ожидающий вызов и ждёт завершения уже начавшегося.
// После возврата fn больше не вызывается. Нельзя вызывать из fn.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	// дожидаемся fire, если он уже выполняется
	d.fireMu.Lock()
	d.fireMu.Unlock()
}
