package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// maxPutAttempts: сколько раз повторяем PutMany при конфликте сериализации или deadlock.
const maxPutAttempts = 3

type kvRepository struct {
	db *sql.DB
}

// NewKeyValueStore создаёт key-value хранилище поверх таблицы kv_entries.
func NewKeyValueStore(store *Store) domain.KeyValueStore {
	return &kvRepository{db: store.db}
}

func (r *kvRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get kv entry %s: %w", key, err)
	}
	return value, true, nil
}

// PutMany перезаписывает все ключи в одной транзакции.
func (r *kvRepository) PutMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	var err error
	for attempt := 1; attempt <= maxPutAttempts; attempt++ {
		err = r.putOnce(ctx, entries)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return err
}

func (r *kvRepository) putOnce(ctx context.Context, entries map[string][]byte) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kv tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Ключи пишем в отсортированном порядке, чтобы параллельные транзакции брали блокировки одинаково.
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv_entries (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value,
			    updated_at = EXCLUDED.updated_at
		`, key, entries[key]); err != nil {
			return fmt.Errorf("upsert kv entry %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit kv tx: %w", err)
	}
	return nil
}

func (r *kvRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

// isRetryable распознаёт serialization_failure и deadlock_detected.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

var _ domain.KeyValueStore = (*kvRepository)(nil)
