// Package signup: регистрация гостей по имени.
package signup

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

// StorageKey: ключ списка гостей.
const StorageKey = "usuarios"

// Registry хранит зарегистрированных гостей.
type Registry struct {
	mu         sync.Mutex
	customers  *state.Collection[domain.Customer]
	logger     *log.Entry
	rejections domain.RejectionRecorder
}

// NewRegistry создаёт реестр. renderer и rejections могут быть nil.
func NewRegistry(kv domain.KeyValueStore, renderer state.Renderer[domain.Customer], rejections domain.RejectionRecorder, opts state.Options) *Registry {
	if rejections == nil {
		rejections = domain.NopRejections{}
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "signup")
	}
	return &Registry{
		customers:  state.NewCollection[domain.Customer](StorageKey, kv, renderer, opts),
		logger:     opts.Logger,
		rejections: rejections,
	}
}

// Load читает список гостей.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.customers.Load(ctx)
}

// Register добавляет гостя. Имя обрезается и должно содержать не меньше трёх символов.
func (r *Registry) Register(ctx context.Context, name string) (domain.Customer, error) {
	normalized, err := domain.NormalizeCustomerName(name)
	if err != nil {
		r.logger.WithError(err).Info("signup rejected")
		r.rejections.RecordRejected("signup", "register", err)
		return domain.Customer{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	customer, err := r.customers.Create(ctx, domain.Customer{Name: normalized})
	if err != nil {
		return domain.Customer{}, fmt.Errorf("register customer: %w", err)
	}
	return customer, nil
}

// Customers возвращает гостей в порядке регистрации.
func (r *Registry) Customers() []domain.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.customers.Snapshot()
}
