package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/app"
	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/version"
)

const (
	envHTTPAddr                    = "GUSTO_HTTP_ADDR"
	envGRPCAddr                    = "GUSTO_GRPC_ADDR"
	envMetricsAddr                 = "GUSTO_METRICS_ADDR"
	envStorageDriver               = "GUSTO_STORAGE_DRIVER"
	envStorageFile                 = "GUSTO_STORAGE_FILE"
	envPostgresDSN                 = "GUSTO_POSTGRES_DSN"
	envPostgresAutoMigrate         = "GUSTO_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers                = "GUSTO_KAFKA_BROKERS"
	envKafkaAuditGroup             = "GUSTO_KAFKA_AUDIT_GROUP"
	envRabbitMQURL                 = "GUSTO_RABBITMQ_URL"
	envCheckoutClearDelay          = "GUSTO_CHECKOUT_CLEAR_DELAY"
	envToastDuration               = "GUSTO_TOAST_DURATION"
	envDeliveryFee                 = "GUSTO_DELIVERY_FEE"
	envAdminSeedEmail              = "GUSTO_ADMIN_SEED_EMAIL"
	envAdminSeedPassword           = "GUSTO_ADMIN_SEED_PASSWORD"
	envOutboxPollInterval          = "GUSTO_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "GUSTO_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "GUSTO_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "GUSTO_OUTBOX_RETRY_DELAY"
	envIdempotencyCleanupInterval  = "GUSTO_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "GUSTO_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envLogLevel                    = "GUSTO_LOG_LEVEL"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if raw, ok := lookup(envLogLevel); ok {
		level, err := log.ParseLevel(strings.TrimSpace(raw))
		if err != nil {
			log.WithError(err).Warn("invalid log level, using info")
			return
		}
		log.SetLevel(level)
	}
}

// readConfigFromEnv собирает конфигурацию из окружения. Некорректные значения
// не роняют запуск: остаётся значение по умолчанию, а причина попадает в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []error) {
	cfg := app.DefaultConfig()
	var warnings []error

	str := func(key string, into *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*into = strings.TrimSpace(v)
		}
	}
	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)
	str(envStorageFile, &cfg.StorageFile)
	str(envPostgresDSN, &cfg.PostgresDSN)
	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaAuditGroup, &cfg.KafkaAuditGroup)
	str(envRabbitMQURL, &cfg.RabbitMQURL)
	str(envAdminSeedEmail, &cfg.AdminSeedEmail)
	str(envAdminSeedPassword, &cfg.AdminSeedPassword)
	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}

	if v, ok := lookup(envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", envPostgresAutoMigrate, err))
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	if v, ok := lookup(envDeliveryFee); ok && strings.TrimSpace(v) != "" {
		if fee, err := domain.ParseMoney(v); err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", envDeliveryFee, err))
		} else {
			cfg.DeliveryFee = fee
			cfg.DeliveryEnabled = fee > 0
		}
	}

	positive := func(v time.Duration) bool { return v > 0 }
	nonNegative := func(v time.Duration) bool { return v >= 0 }
	durations := []struct {
		key   string
		into  *time.Duration
		valid func(time.Duration) bool
		rule  string
	}{
		{envCheckoutClearDelay, &cfg.CheckoutClearDelay, positive, "must be > 0"},
		{envToastDuration, &cfg.ToastDuration, positive, "must be > 0"},
		{envOutboxPollInterval, &cfg.OutboxPollInterval, positive, "must be > 0"},
		{envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegative, "must be >= 0"},
		{envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positive, "must be > 0"},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok {
			continue
		}
		parsed, err := parseDuration(v, d.valid, d.rule)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", d.key, err))
			continue
		}
		*d.into = parsed
	}

	positiveInt := func(v int) bool { return v > 0 }
	ints := []struct {
		key  string
		into *int
	}{
		{envOutboxBatchSize, &cfg.OutboxBatchSize},
		{envOutboxMaxAttempts, &cfg.OutboxMaxAttempts},
		{envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok {
			continue
		}
		parsed, err := parseInt(v, positiveInt, "must be > 0")
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", i.key, err))
			continue
		}
		*i.into = parsed
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, rule)
	}
	return value, nil
}

func main() {
	setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.WithError(warning).Warn("invalid environment value, using default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":        version.String(),
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
	}).Info("запускаем gusto")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("gusto остановлен")
}
