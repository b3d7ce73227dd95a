package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// ErrForeignStore возвращается, если в одну транзакцию попали коллекции разных хранилищ.
var ErrForeignStore = errors.New("state: collection belongs to another key-value store")

type txPart interface {
	key() string
	dirty() bool
	encode() ([]byte, error)
	commit()
}

// Tx группирует изменения нескольких коллекций в один переход состояния.
//
// Изменения применяются к рабочим копиям. Commit сохраняет все затронутые коллекции одним
// PutMany; при ошибке рабочие копии отбрасываются и коллекции остаются в прежнем виде.
// После успешного сохранения каждая затронутая коллекция перерисовывается.
type Tx struct {
	kv     domain.KeyValueStore
	parts  []txPart
	byColl map[any]txPart
	err    error
	done   bool
}

// Begin открывает транзакцию над хранилищем.
func Begin(kv domain.KeyValueStore) *Tx {
	return &Tx{kv: kv, byColl: make(map[any]txPart)}
}

// Staged: рабочая копия коллекции внутри транзакции.
type Staged[T Record[T]] struct {
	coll    *Collection[T]
	items   []T
	ops     []Op
	changed bool
}

// Stage возвращает рабочую копию коллекции в транзакции. Повторный вызов возвращает ту же копию.
func Stage[T Record[T]](tx *Tx, c *Collection[T]) *Staged[T] {
	if part, ok := tx.byColl[c]; ok {
		return part.(*Staged[T])
	}
	if c.kv != tx.kv && tx.err == nil {
		tx.err = fmt.Errorf("%w: %s", ErrForeignStore, c.key)
	}
	staged := &Staged[T]{coll: c, items: slices.Clone(c.items)}
	tx.byColl[c] = staged
	tx.parts = append(tx.parts, staged)
	return staged
}

// Commit сохраняет все изменённые коллекции и применяет изменения.
// Транзакция без изменений ничего не сохраняет и не отрисовывает.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return errors.New("state: transaction already finished")
	}
	tx.done = true
	if tx.err != nil {
		return tx.err
	}

	entries := make(map[string][]byte)
	var keys []string
	var dirty []txPart
	for _, part := range tx.parts {
		if !part.dirty() {
			continue
		}
		raw, err := part.encode()
		if err != nil {
			return fmt.Errorf("state: encode %s: %w", part.key(), err)
		}
		entries[part.key()] = raw
		keys = append(keys, part.key())
		dirty = append(dirty, part)
	}
	if len(dirty) == 0 {
		return nil
	}

	if err := tx.kv.PutMany(ctx, entries); err != nil {
		return fmt.Errorf("state: persist %s: %w", strings.Join(keys, ","), err)
	}

	for _, part := range dirty {
		part.commit()
	}
	return nil
}

// Rollback отменяет транзакцию.
func (tx *Tx) Rollback() {
	tx.done = true
}

// Find ищет запись в рабочей копии.
func (s *Staged[T]) Find(id string) (T, bool) {
	idx := indexOf(s.items, id)
	if idx < 0 {
		var zero T
		return zero, false
	}
	return s.items[idx], true
}

// List перечисляет рабочую копию.
func (s *Staged[T]) List(filter ...func(T) bool) iter.Seq[T] {
	return listSeq(slices.Clone(s.items), filter)
}

// Len возвращает размер рабочей копии.
func (s *Staged[T]) Len() int {
	return len(s.items)
}

// Create добавляет запись с новым ID.
func (s *Staged[T]) Create(fields T) T {
	record := fields.WithIdentity(s.coll.opts.NewID(), s.coll.opts.Now())
	s.items = append(s.items, record)
	s.mark(OpCreate)
	return record
}

// Put вставляет или заменяет запись по её ID.
func (s *Staged[T]) Put(record T) {
	if idx := indexOf(s.items, record.RecordID()); idx >= 0 {
		s.items[idx] = record
	} else {
		s.items = append(s.items, record)
	}
	s.mark(OpPut)
}

// Update применяет patch; ID и время создания сохраняются.
func (s *Staged[T]) Update(id string, patch func(T) T) (T, bool) {
	idx := indexOf(s.items, id)
	if idx < 0 {
		s.coll.logger.WithField("id", id).Debug("update: record not found")
		var zero T
		return zero, false
	}
	current := s.items[idx]
	updated := patch(current).WithIdentity(current.RecordID(), current.RecordCreatedAt())
	s.items[idx] = updated
	s.mark(OpUpdate)
	return updated, true
}

// Remove удаляет запись из рабочей копии.
func (s *Staged[T]) Remove(id string) bool {
	idx := indexOf(s.items, id)
	if idx < 0 {
		s.coll.logger.WithField("id", id).Debug("remove: record not found")
		return false
	}
	s.items = slices.Delete(s.items, idx, idx+1)
	s.mark(OpRemove)
	return true
}

// Replace заменяет рабочую копию целиком.
func (s *Staged[T]) Replace(records []T) {
	s.items = slices.Clone(records)
	if s.items == nil {
		s.items = []T{}
	}
	s.mark(OpReplace)
}

// Clear очищает рабочую копию.
func (s *Staged[T]) Clear() {
	s.items = []T{}
	s.mark(OpClear)
}

func (s *Staged[T]) mark(op Op) {
	s.changed = true
	s.ops = append(s.ops, op)
}

func (s *Staged[T]) key() string {
	return s.coll.key
}

func (s *Staged[T]) dirty() bool {
	return s.changed
}

func (s *Staged[T]) encode() ([]byte, error) {
	return json.Marshal(s.items)
}

func (s *Staged[T]) commit() {
	s.coll.items = s.items
	s.coll.render()
	s.coll.notify(s.ops)
}
