package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// KeyValueStore: key-value хранилище в памяти процесса. Значения копируются на входе и выходе.
type KeyValueStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKeyValueStore создаёт пустое хранилище.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{data: make(map[string][]byte)}
}

// Get возвращает копию значения по ключу.
func (s *KeyValueStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

// PutMany записывает все ключи под одной блокировкой.
func (s *KeyValueStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range entries {
		s.data[key] = slices.Clone(value)
	}
	return nil
}

// Ping всегда успешен.
func (s *KeyValueStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Keys возвращает отсортированный список ключей (используется в тестах и snapshot).
func (s *KeyValueStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

var _ domain.KeyValueStore = (*KeyValueStore)(nil)
