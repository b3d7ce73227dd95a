package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/gusto/internal/health"
	"github.com/vladislavdragonenkov/gusto/internal/storage/file"
	"github.com/vladislavdragonenkov/gusto/internal/storage/memory"
	"github.com/vladislavdragonenkov/gusto/internal/storage/postgres"
)

// runtimeDependencies: хранилища, выбранные драйвером.
type runtimeDependencies struct {
	kv              domain.KeyValueStore
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository
	storageChecker  healthcheck.Checker
	closeFn         func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	// Ключи идемпотентности живут сутки и переживать рестарт им не нужно.
	idempotencyRepo := memory.NewIdempotencyRepository()

	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	switch driver {
	case "", StorageDriverMemory:
		kv := memory.NewKeyValueStore()
		return runtimeDependencies{
			kv:              kv,
			outboxRepo:      memory.NewOutboxRepository(),
			idempotencyRepo: idempotencyRepo,
			storageChecker:  healthcheck.NewPingChecker("storage", kv.Ping),
		}, nil

	case StorageDriverFile:
		path := strings.TrimSpace(cfg.StorageFile)
		if path == "" {
			return runtimeDependencies{}, errors.New("storage file path is required for file storage driver")
		}
		kv, err := file.Open(path)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open file storage: %w", err)
		}
		logger.WithField("path", kv.Path()).Info("file storage initialized")
		return runtimeDependencies{
			kv:              kv,
			outboxRepo:      memory.NewOutboxRepository(),
			idempotencyRepo: idempotencyRepo,
			storageChecker:  healthcheck.NewPingChecker("storage", kv.Ping),
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return runtimeDependencies{}, errors.New("postgres dsn is required for postgres storage driver")
		}
		store, err := postgres.Open(ctx, dsn, postgres.WithAutoMigrate(cfg.PostgresAutoMigrate))
		if err != nil {
			return runtimeDependencies{}, err
		}
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("postgres storage initialized")
		return runtimeDependencies{
			kv:              postgres.NewKeyValueStore(store),
			outboxRepo:      postgres.NewOutboxRepository(store),
			idempotencyRepo: idempotencyRepo,
			storageChecker:  healthcheck.NewPingChecker("storage", store.Ping),
			closeFn:         store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
