// Package postgres хранит коллекции и outbox в PostgreSQL через pgx (database/sql драйвер).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	opTimeout = 5 * time.Second
)

var errNotInitialized = errors.New("postgres store is not initialized")

// Option настраивает Store при открытии.
type Option func(*Store)

// WithAutoMigrate применяет все up-миграции сразу после подключения.
// После этого Ping проверяет ещё и доступность kv_entries.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Store) {
		s.autoMigrate = enabled
	}
}

// Store держит пул подключений, общий для коллекций, outbox и мигратора.
type Store struct {
	db          *sql.DB
	autoMigrate bool
}

// Open подключается к PostgreSQL, проверяет базу и при WithAutoMigrate(true) накатывает схему.
func Open(ctx context.Context, dsn string, options ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	// коллекции пишутся целиком, поэтому пул небольшой: idle-соединений столько же, сколько открытых
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxOpenConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	s := &Store{db: db}
	for _, option := range options {
		option(s)
	}

	if err := s.pingConn(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if s.autoMigrate {
		if err := s.MigrateUp(ctx, 0); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
	}
	return s, nil
}

// Ping проверяет подключение, а для схемы, накатанной при открытии, и чтение kv_entries.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if err := s.pingConn(ctx); err != nil {
		return err
	}
	if !s.autoMigrate {
		return nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	var one int
	err := s.db.QueryRowContext(queryCtx, `SELECT 1 FROM kv_entries LIMIT 1`).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("kv_entries is not readable: %w", err)
	}
	return nil
}

func (s *Store) pingConn(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Close закрывает пул.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
