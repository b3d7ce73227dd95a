package app

import (
	"time"

	"github.com/vladislavdragonenkov/gusto/internal/cart"
	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/kitchen"
	"github.com/vladislavdragonenkov/gusto/internal/notice"
)

// Драйверы хранилища состояния.
const (
	StorageDriverMemory   = "memory"
	StorageDriverFile     = "file"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	StorageFile         string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers: список брокеров через запятую; пустая строка отключает Kafka.
	KafkaBrokers string
	// KafkaAuditGroup включает аудит-консьюмер gusto.state.events с этой consumer group.
	KafkaAuditGroup string
	RabbitMQURL     string

	CheckoutClearDelay time.Duration
	ToastDuration      time.Duration
	DeliveryFee        domain.Money
	DeliveryEnabled    bool

	AdminSeedEmail    string
	AdminSeedPassword string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает настройки локального запуска: всё в памяти, брокеры выключены.
func DefaultConfig() Config {
	seed := kitchen.DefaultSeedAccount()
	return Config{
		HTTPAddr:    ":8080",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		StorageFile:         "gusto-state.json",
		PostgresAutoMigrate: true,

		CheckoutClearDelay: cart.DefaultClearDelay,
		ToastDuration:      notice.DefaultDuration,

		AdminSeedEmail:    seed.Email,
		AdminSeedPassword: seed.Password,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,

		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}
