package state

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// Collection: именованная упорядоченная коллекция записей, синхронизированная с key-value хранилищем.
//
// Все мутации проходят через Tx: изменения сначала применяются к рабочей копии, затем сохраняются,
// и только после успешного сохранения становятся видимыми и перерисовываются.
// Коллекция не потокобезопасна: владелец (стор) сериализует операции своим мьютексом.
type Collection[T Record[T]] struct {
	key      string
	kv       domain.KeyValueStore
	renderer Renderer[T]
	opts     Options
	logger   *log.Entry
	items    []T
}

// NewCollection создаёт пустую коллекцию. Renderer может быть nil.
func NewCollection[T Record[T]](key string, kv domain.KeyValueStore, renderer Renderer[T], opts Options) *Collection[T] {
	opts = opts.withDefaults(key)
	return &Collection[T]{
		key:      key,
		kv:       kv,
		renderer: renderer,
		opts:     opts,
		logger:   opts.Logger,
		items:    []T{},
	}
}

// Key возвращает ключ хранилища коллекции.
func (c *Collection[T]) Key() string {
	return c.key
}

// Load читает коллекцию из хранилища и отрисовывает её. Отсутствующий ключ даёт пустую коллекцию.
func (c *Collection[T]) Load(ctx context.Context) error {
	raw, found, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return fmt.Errorf("state: load %s: %w", c.key, err)
	}

	items := []T{}
	if found && len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("state: decode %s: %w", c.key, err)
		}
		if items == nil {
			items = []T{}
		}
	}

	c.items = items
	c.render()
	c.notify([]Op{OpLoad})
	return nil
}

// Find возвращает запись по ID.
func (c *Collection[T]) Find(id string) (T, bool) {
	idx := indexOf(c.items, id)
	if idx < 0 {
		var zero T
		return zero, false
	}
	return c.items[idx], true
}

// List возвращает перезапускаемую последовательность записей в порядке вставки.
// Последовательность идёт по снимку, поэтому изменения коллекции её не затрагивают.
func (c *Collection[T]) List(filter ...func(T) bool) iter.Seq[T] {
	return listSeq(c.Snapshot(), filter)
}

// Snapshot возвращает копию текущего содержимого.
func (c *Collection[T]) Snapshot() []T {
	return slices.Clone(c.items)
}

// Len возвращает число записей.
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Create добавляет запись с новым ID и временем создания.
func (c *Collection[T]) Create(ctx context.Context, fields T) (T, error) {
	tx := Begin(c.kv)
	created := Stage(tx, c).Create(fields)
	if err := tx.Commit(ctx); err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

// Put вставляет запись с ID, выбранным вызывающим, или заменяет существующую с тем же ID.
func (c *Collection[T]) Put(ctx context.Context, record T) error {
	tx := Begin(c.kv)
	Stage(tx, c).Put(record)
	return tx.Commit(ctx)
}

// Update применяет patch к записи с сохранением ID и времени создания.
// Неизвестный ID даёт тихий промах (found=false), без сохранения и отрисовки.
func (c *Collection[T]) Update(ctx context.Context, id string, patch func(T) T) (T, bool, error) {
	tx := Begin(c.kv)
	updated, found := Stage(tx, c).Update(id, patch)
	if !found {
		return updated, false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		var zero T
		return zero, true, err
	}
	return updated, true, nil
}

// Remove удаляет запись. Неизвестный ID: тихий промах.
func (c *Collection[T]) Remove(ctx context.Context, id string) (bool, error) {
	tx := Begin(c.kv)
	if !Stage(tx, c).Remove(id) {
		return false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Replace полностью заменяет содержимое коллекции.
func (c *Collection[T]) Replace(ctx context.Context, records []T) error {
	tx := Begin(c.kv)
	Stage(tx, c).Replace(records)
	return tx.Commit(ctx)
}

// Clear удаляет все записи.
func (c *Collection[T]) Clear(ctx context.Context) error {
	tx := Begin(c.kv)
	Stage(tx, c).Clear()
	return tx.Commit(ctx)
}

func (c *Collection[T]) render() {
	if c.renderer == nil {
		return
	}
	c.renderer.Render(c.Snapshot())
}

func (c *Collection[T]) notify(ops []Op) {
	if len(c.opts.Observers) == 0 {
		return
	}
	at := c.opts.Now()
	for _, op := range ops {
		change := Change{Collection: c.key, Op: op, Size: len(c.items), At: at}
		for _, observer := range c.opts.Observers {
			observer.Observe(change)
		}
	}
}

func indexOf[T Record[T]](items []T, id string) int {
	return slices.IndexFunc(items, func(item T) bool { return item.RecordID() == id })
}

func listSeq[T any](items []T, filters []func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range items {
			if !matches(item, filters) {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

func matches[T any](item T, filters []func(T) bool) bool {
	for _, filter := range filters {
		if filter != nil && !filter(item) {
			return false
		}
	}
	return true
}
