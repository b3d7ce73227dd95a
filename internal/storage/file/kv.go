// Package file хранит все коллекции в одном JSON-файле. Каждая запись переписывает файл целиком
// через временный файл и rename, поэтому на диске всегда лежит последний целый снимок.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

const filePerm = 0o600

// KeyValueStore: key-value хранилище поверх JSON-файла.
type KeyValueStore struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// Open читает снимок из path. Отсутствующий файл означает пустое хранилище.
func Open(path string) (*KeyValueStore, error) {
	if path == "" {
		return nil, errors.New("file store: path is required")
	}
	s := &KeyValueStore{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("file store: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w", path, err)
	}
	if s.data == nil {
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Path возвращает путь к файлу снимка.
func (s *KeyValueStore) Path() string {
	return s.path
}

// Get возвращает копию значения по ключу.
func (s *KeyValueStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone([]byte(value)), true, nil
}

// PutMany применяет все ключи к копии снимка и атомарно заменяет файл.
// При ошибке записи снимок в памяти не меняется.
func (s *KeyValueStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.data)
	for key, value := range entries {
		if !json.Valid(value) {
			return fmt.Errorf("file store: value for %s is not valid JSON", key)
		}
		next[key] = json.RawMessage(slices.Clone(value))
	}

	if err := s.writeSnapshot(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Ping проверяет, что каталог снимка существует.
func (s *KeyValueStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("file store: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("file store: %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *KeyValueStore) writeSnapshot(data map[string]json.RawMessage) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("file store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		cleanup()
		return fmt.Errorf("file store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("file store: replace snapshot: %w", err)
	}
	return nil
}

var _ domain.KeyValueStore = (*KeyValueStore)(nil)
