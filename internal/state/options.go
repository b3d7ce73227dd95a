// Package state реализует контейнер состояния: коллекция в памяти изменяется,
// сохраняется в key-value хранилище и перерисовывается целиком после каждой успешной мутации.
package state

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Record: ограничение на элементы коллекции.
type Record[T any] interface {
	RecordID() string
	RecordCreatedAt() time.Time
	// WithIdentity возвращает копию записи с заданными ID и временем создания.
	WithIdentity(id string, createdAt time.Time) T
}

// Renderer получает полное текущее содержимое коллекции после каждого изменения.
type Renderer[T any] interface {
	Render(items []T)
}

// RenderFunc адаптирует функцию к Renderer.
type RenderFunc[T any] func(items []T)

// Render реализует Renderer.
func (f RenderFunc[T]) Render(items []T) {
	f(items)
}

// Op: вид изменения коллекции.
type Op string

const (
	OpLoad    Op = "load"
	OpCreate  Op = "create"
	OpPut     Op = "put"
	OpUpdate  Op = "update"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
	OpClear   Op = "clear"
)

// Change описывает зафиксированное изменение коллекции.
type Change struct {
	Collection string
	Op         Op
	Size       int
	At         time.Time
}

// Observer получает уведомления о зафиксированных изменениях (метрики, события).
type Observer interface {
	Observe(change Change)
}

// ObserverFunc адаптирует функцию к Observer.
type ObserverFunc func(change Change)

// Observe реализует Observer.
func (f ObserverFunc) Observe(change Change) {
	f(change)
}

// Options задаёт зависимости коллекции.
type Options struct {
	Observers []Observer
	// NewID генерирует идентификатор новой записи; по умолчанию UUIDv7.
	NewID  func() string
	Now    func() time.Time
	Logger *log.Entry
}

// NewID возвращает упорядоченный по времени UUIDv7.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (o Options) withDefaults(key string) Options {
	if o.NewID == nil {
		o.NewID = NewID
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.Logger == nil {
		o.Logger = log.WithField("component", "state")
	}
	o.Logger = o.Logger.WithField("collection", key)
	return o
}
