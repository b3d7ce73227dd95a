// Package notice хранит короткое уведомление (toast), которое само скрывается через заданное время.
package notice

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/gusto/internal/schedule"
)

// DefaultDuration: время показа уведомления.
const DefaultDuration = 3 * time.Second

// Toast: текущее уведомление.
type Toast struct {
	Message string    `json:"message"`
	ShownAt time.Time `json:"shown_at"`
}

// Board показывает одно уведомление за раз. Каждый Show планирует своё скрытие; таймеры не отменяются,
// поэтому скрытие от раннего Show может убрать более позднее уведомление раньше срока.
type Board struct {
	mu        sync.Mutex
	scheduler schedule.Scheduler
	duration  time.Duration
	now       func() time.Time
	current   *Toast
	onChange  func(*Toast)
}

// NewBoard создаёт доску уведомлений. onChange может быть nil; он вызывается под мьютексом доски
// и не должен обращаться к ней.
func NewBoard(scheduler schedule.Scheduler, duration time.Duration, onChange func(*Toast)) *Board {
	if scheduler == nil {
		scheduler = schedule.Real{}
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Board{
		scheduler: scheduler,
		duration:  duration,
		now:       func() time.Time { return time.Now().UTC() },
		onChange:  onChange,
	}
}

// Show выводит сообщение и планирует его скрытие.
func (b *Board) Show(message string) {
	b.mu.Lock()
	b.current = &Toast{Message: message, ShownAt: b.now()}
	b.emit(b.copyCurrent())
	b.mu.Unlock()

	b.scheduler.AfterFunc(b.duration, b.hide)
}

// Current возвращает видимое уведомление.
func (b *Board) Current() (Toast, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Toast{}, false
	}
	return *b.current, true
}

func (b *Board) hide() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return
	}
	b.current = nil
	b.emit(nil)
}

func (b *Board) copyCurrent() *Toast {
	if b.current == nil {
		return nil
	}
	t := *b.current
	return &t
}

// emit вызывается под b.mu, поэтому отрисовки идут в том же порядке, что и изменения.
func (b *Board) emit(t *Toast) {
	if b.onChange != nil {
		b.onChange(t)
	}
}
