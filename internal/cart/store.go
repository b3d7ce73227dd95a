// Package cart хранит корзину клиентской страницы: строки заказа, итоги и оформление.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/notice"
	"github.com/vladislavdragonenkov/gusto/internal/schedule"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

// StorageKey: ключ, под которым хранится корзина.
const StorageKey = "gustoCart"

// DefaultClearDelay: пауза между подтверждением заказа и очисткой корзины.
const DefaultClearDelay = 2 * time.Second

const (
	msgRemoved       = "Item removido do carrinho"
	msgCheckout      = "Pedido finalizado"
	msgEmptyCheckout = "Adicione itens ao carrinho antes de finalizar o pedido"
)

// Config задаёт параметры корзины.
type Config struct {
	// DeliveryFee прибавляется к итогу только при DeliveryEnabled.
	DeliveryFee     domain.Money
	DeliveryEnabled bool
	ClearDelay      time.Duration
}

// Summary: всё, что нужно для отрисовки бейджа, итогов и списка строк.
type Summary struct {
	Lines       []domain.CartLine `json:"lines"`
	TotalItems  int               `json:"total_items"`
	Subtotal    domain.Money      `json:"subtotal_minor"`
	DeliveryFee domain.Money      `json:"delivery_fee_minor"`
	Total       domain.Money      `json:"total_minor"`
}

// Receipt возвращается при оформлении заказа.
type Receipt struct {
	Summary
	PlacedAt time.Time `json:"placed_at"`
}

// Renderer отрисовывает корзину целиком.
type Renderer interface {
	RenderCart(summary Summary)
}

// Summarize считает итоги по строкам.
func Summarize(lines []domain.CartLine, cfg Config) Summary {
	s := Summary{Lines: lines}
	for _, line := range lines {
		s.TotalItems += line.Quantity
		s.Subtotal += line.LineTotal()
	}
	s.Total = s.Subtotal
	if cfg.DeliveryEnabled {
		s.DeliveryFee = cfg.DeliveryFee
		s.Total += cfg.DeliveryFee
	}
	return s
}

// Store: корзина. Все операции сериализуются мьютексом.
type Store struct {
	mu         sync.Mutex
	lines      *state.Collection[domain.CartLine]
	board      *notice.Board
	scheduler  schedule.Scheduler
	cfg        Config
	logger     *log.Entry
	rejections domain.RejectionRecorder
	now        func() time.Time
}

// Option настраивает Store.
type Option func(*Store)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRejections задаёт учёт отклонённых операций.
func WithRejections(r domain.RejectionRecorder) Option {
	return func(s *Store) {
		s.rejections = r
	}
}

// WithScheduler задаёт планировщик отложенной очистки.
func WithScheduler(scheduler schedule.Scheduler) Option {
	return func(s *Store) {
		s.scheduler = scheduler
	}
}

// NewStore создаёт корзину поверх key-value хранилища. renderer и board могут быть nil.
func NewStore(kv domain.KeyValueStore, renderer Renderer, board *notice.Board, cfg Config, stateOpts state.Options, options ...Option) *Store {
	if cfg.ClearDelay <= 0 {
		cfg.ClearDelay = DefaultClearDelay
	}
	s := &Store{
		board:      board,
		scheduler:  schedule.Real{},
		cfg:        cfg,
		logger:     log.WithField("component", "cart"),
		rejections: domain.NopRejections{},
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	if stateOpts.Logger == nil {
		stateOpts.Logger = s.logger
	}
	if stateOpts.Now != nil {
		s.now = stateOpts.Now
	}

	var lineRenderer state.Renderer[domain.CartLine]
	if renderer != nil {
		lineRenderer = state.RenderFunc[domain.CartLine](func(lines []domain.CartLine) {
			renderer.RenderCart(Summarize(lines, s.cfg))
		})
	}
	s.lines = state.NewCollection[domain.CartLine](StorageKey, kv, lineRenderer, stateOpts)
	return s
}

// Load восстанавливает корзину из хранилища.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Load(ctx)
}

// AddItem увеличивает количество существующей строки или добавляет новую с количеством 1.
func (s *Store) AddItem(ctx context.Context, product domain.Product) (domain.CartLine, error) {
	if errs := product.Validate(); len(errs) > 0 {
		err := errors.Join(errs...)
		s.reject("add_item", err)
		return domain.CartLine{}, err
	}

	s.mu.Lock()
	line, ok := s.lines.Find(product.ID)
	if ok {
		line.Quantity++
	} else {
		line = domain.NewCartLine(product).WithIdentity(product.ID, s.now())
	}
	err := s.lines.Put(ctx, line)
	s.mu.Unlock()
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("add item %s: %w", product.ID, err)
	}

	s.toast(product.Name + " adicionado ao carrinho!")
	return line, nil
}

// RemoveItem удаляет строку. Неизвестный ID: тихий промах.
func (s *Store) RemoveItem(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	removed, err := s.lines.Remove(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("remove item %s: %w", id, err)
	}
	if removed {
		s.toast(msgRemoved)
	}
	return removed, nil
}

// UpdateQuantity задаёт количество; n <= 0 удаляет строку.
func (s *Store) UpdateQuantity(ctx context.Context, id string, n int) (bool, error) {
	if n <= 0 {
		return s.RemoveItem(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, found, err := s.lines.Update(ctx, id, func(line domain.CartLine) domain.CartLine {
		line.Quantity = n
		return line
	})
	if err != nil {
		return found, fmt.Errorf("update quantity %s: %w", id, err)
	}
	return found, nil
}

// Lines возвращает строки корзины в порядке добавления.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Snapshot()
}

// Summary возвращает итоги корзины.
func (s *Store) Summary() Summary {
	return Summarize(s.Lines(), s.cfg)
}

// Subtotal: сумма цена × количество по всем строкам.
func (s *Store) Subtotal() domain.Money {
	return s.Summary().Subtotal
}

// Total: подытог плюс доставка, если она включена.
func (s *Store) Total() domain.Money {
	return s.Summary().Total
}

// TotalItems: суммарное количество единиц.
func (s *Store) TotalItems() int {
	return s.Summary().TotalItems
}

// Checkout подтверждает заказ и планирует очистку корзины через ClearDelay.
// Повторное оформление до очистки планирует ещё один таймер.
func (s *Store) Checkout(context.Context) (Receipt, error) {
	s.mu.Lock()
	lines := s.lines.Snapshot()
	s.mu.Unlock()

	if len(lines) == 0 {
		s.toast(msgEmptyCheckout)
		s.reject("checkout", domain.ErrEmptyCart)
		return Receipt{}, domain.ErrEmptyCart
	}

	receipt := Receipt{Summary: Summarize(lines, s.cfg), PlacedAt: s.now()}
	s.toast(msgCheckout)
	s.scheduler.AfterFunc(s.cfg.ClearDelay, s.clearAfterCheckout)
	s.logger.WithFields(log.Fields{
		"items": receipt.TotalItems,
		"total": receipt.Total.String(),
	}).Info("checkout accepted")
	return receipt, nil
}

// Clear очищает корзину.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lines.Clear(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Store) clearAfterCheckout() {
	if err := s.Clear(context.Background()); err != nil {
		s.logger.WithError(err).Warn("failed to clear cart after checkout")
	}
}

func (s *Store) toast(message string) {
	if s.board != nil {
		s.board.Show(message)
	}
}

func (s *Store) reject(op string, err error) {
	s.logger.WithError(err).WithField("operation", op).Info("cart operation rejected")
	s.rejections.RecordRejected("cart", op, err)
}
