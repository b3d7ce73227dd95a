// Package kitchen реализует панель кухни: столы, заказы, оплаты, меню и учётные записи администраторов.
//
// Admin владеет шестью коллекциями и сериализует все операции одним мьютексом. Операции,
// затрагивающие несколько коллекций, фиксируются одной state.Tx.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

// Ключи хранилища.
const (
	KeyTables        = "tables"
	KeyOrders        = "orders"
	KeyOrdersArchive = "ordersArchive"
	KeyMenuItems     = "menuItems"
	KeyHistory       = "history"
	KeyAccounts      = "adminAccounts"
)

// OrdersRenderer отрисовывает активные заказы вместе со счётчиками.
type OrdersRenderer interface {
	RenderOrders(active []domain.Order, stats domain.OrderStats)
}

// HistoryRenderer отрисовывает историю оплат и общую выручку.
type HistoryRenderer interface {
	RenderHistory(entries []domain.HistoryEntry, total domain.Money)
}

// AccountsRenderer отрисовывает учётные записи без паролей.
type AccountsRenderer interface {
	RenderAccounts(accounts []AccountView)
}

// Renderers: приёмники отрисовки панели. Любое поле может быть nil.
type Renderers struct {
	Tables   state.Renderer[domain.Table]
	Orders   OrdersRenderer
	Archive  state.Renderer[domain.Order]
	Menu     state.Renderer[domain.MenuItem]
	History  HistoryRenderer
	Accounts AccountsRenderer
}

// SeedAccount: учётная запись, создаваемая при пустом хранилище.
type SeedAccount struct {
	Email    string
	Password string
	Role     string
}

// DefaultSeedAccount возвращает стартовую учётную запись.
func DefaultSeedAccount() SeedAccount {
	return SeedAccount{Email: "admin@kitchen.com", Password: "admin123", Role: domain.DefaultAdminRole}
}

// Config задаёт параметры панели.
type Config struct {
	Seed       SeedAccount
	BcryptCost int
	// MaxImageBytes ограничивает размер загружаемой картинки блюда.
	MaxImageBytes int64
}

// Admin: фасад панели кухни.
type Admin struct {
	mu  sync.Mutex
	kv  domain.KeyValueStore
	cfg Config

	tables   *state.Collection[domain.Table]
	orders   *state.Collection[domain.Order]
	archive  *state.Collection[domain.Order]
	menu     *state.Collection[domain.MenuItem]
	history  *state.Collection[domain.HistoryEntry]
	accounts *state.Collection[domain.AdminAccount]

	logger     *log.Entry
	rejections domain.RejectionRecorder
	now        func() time.Time
}

// Option настраивает Admin.
type Option func(*Admin)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(a *Admin) {
		a.logger = logger
	}
}

// WithRejections задаёт учёт отклонённых операций.
func WithRejections(r domain.RejectionRecorder) Option {
	return func(a *Admin) {
		a.rejections = r
	}
}

// NewAdmin создаёт панель поверх одного key-value хранилища.
func NewAdmin(kv domain.KeyValueStore, renderers Renderers, cfg Config, stateOpts state.Options, options ...Option) *Admin {
	if cfg.Seed.Email == "" {
		cfg.Seed = DefaultSeedAccount()
	}
	if cfg.Seed.Role == "" {
		cfg.Seed.Role = domain.DefaultAdminRole
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}

	a := &Admin{
		kv:         kv,
		cfg:        cfg,
		logger:     log.WithField("component", "kitchen"),
		rejections: domain.NopRejections{},
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(a)
	}
	if stateOpts.Logger == nil {
		stateOpts.Logger = a.logger
	}
	if stateOpts.Now != nil {
		a.now = stateOpts.Now
	}

	var ordersRenderer state.Renderer[domain.Order]
	if renderers.Orders != nil {
		ordersRenderer = state.RenderFunc[domain.Order](func(active []domain.Order) {
			renderers.Orders.RenderOrders(active, countOrders(active))
		})
	}
	var historyRenderer state.Renderer[domain.HistoryEntry]
	if renderers.History != nil {
		historyRenderer = state.RenderFunc[domain.HistoryEntry](func(entries []domain.HistoryEntry) {
			renderers.History.RenderHistory(entries, sumHistory(entries))
		})
	}
	var accountsRenderer state.Renderer[domain.AdminAccount]
	if renderers.Accounts != nil {
		accountsRenderer = state.RenderFunc[domain.AdminAccount](func(accounts []domain.AdminAccount) {
			renderers.Accounts.RenderAccounts(viewAccounts(accounts))
		})
	}

	a.tables = state.NewCollection[domain.Table](KeyTables, kv, renderers.Tables, stateOpts)
	a.orders = state.NewCollection[domain.Order](KeyOrders, kv, ordersRenderer, stateOpts)
	a.archive = state.NewCollection[domain.Order](KeyOrdersArchive, kv, renderers.Archive, stateOpts)
	a.menu = state.NewCollection[domain.MenuItem](KeyMenuItems, kv, renderers.Menu, stateOpts)
	a.history = state.NewCollection[domain.HistoryEntry](KeyHistory, kv, historyRenderer, stateOpts)
	a.accounts = state.NewCollection[domain.AdminAccount](KeyAccounts, kv, accountsRenderer, stateOpts)
	return a
}

// Load читает все коллекции и создаёт стартовую учётную запись, если их нет.
func (a *Admin) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	loaders := []interface{ Load(context.Context) error }{
		a.tables, a.orders, a.archive, a.menu, a.history, a.accounts,
	}
	for _, c := range loaders {
		if err := c.Load(ctx); err != nil {
			return err
		}
	}

	if a.accounts.Len() > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.cfg.Seed.Password), a.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}
	seed, err := a.accounts.Create(ctx, domain.AdminAccount{
		Email:        domain.NormalizeEmail(a.cfg.Seed.Email),
		PasswordHash: hash,
		Role:         a.cfg.Seed.Role,
	})
	if err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	a.logger.WithField("email", seed.Email).Info("seed admin account created")
	return nil
}

// Ping проверяет хранилище панели.
func (a *Admin) Ping(ctx context.Context) error {
	return a.kv.Ping(ctx)
}

func (a *Admin) reject(op string, err error) error {
	a.logger.WithError(err).WithField("operation", op).Info("kitchen operation rejected")
	a.rejections.RecordRejected("kitchen", op, err)
	return err
}

func (a *Admin) rejectAll(op string, errs []error) error {
	return a.reject(op, errors.Join(errs...))
}

func (a *Admin) miss(op, id string) {
	a.logger.WithFields(log.Fields{"operation": op, "id": id}).Debug("record not found")
}
