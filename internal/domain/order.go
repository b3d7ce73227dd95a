package domain

import (
	"fmt"
	"time"
)

// OrderStatus описывает жизненный цикл заказа на кухне.
type OrderStatus string

const (
	// OrderStatusPending: заказ принят, кухня ещё не начала готовить.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPreparing: заказ готовится.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusReady: заказ готов и уходит в архив.
	OrderStatusReady OrderStatus = "ready"
)

// DefaultCustomerName подставляется, когда у стола нет имени гостя.
const DefaultCustomerName = "Cliente"

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady:
		return true
	default:
		return false
	}
}

// CanTransitionTo разрешает только шаг вперёд: pending → preparing → ready.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPreparing
	case OrderStatusPreparing:
		return next == OrderStatusReady
	default:
		return false
	}
}

// CheckTransition возвращает ErrInvalidTransition для недопустимого перехода.
func (s OrderStatus) CheckTransition(next OrderStatus) error {
	if !next.Valid() {
		return NewValidationError("status", fmt.Sprintf("unknown order status %q", next))
	}
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

// OrderItem: строка заказа в том виде, в котором её видит кухня.
type OrderItem struct {
	Name  string `json:"name"`
	Price Money  `json:"price_minor"`
}

// Order агрегирует заказ стола. TableNumber и CustomerName: снимки на момент создания.
type Order struct {
	Meta
	TableID      string      `json:"table_id"`
	TableNumber  int         `json:"table_number"`
	CustomerName string      `json:"customer_name"`
	Items        []OrderItem `json:"items"`
	Status       OrderStatus `json:"status"`
	Total        Money       `json:"total_minor"`
	Settled      bool        `json:"settled"`
	ArchivedAt   *time.Time  `json:"archived_at,omitempty"`
}

// WithIdentity возвращает копию заказа с заданными ID и временем создания.
func (o Order) WithIdentity(id string, createdAt time.Time) Order {
	o.ID = id
	o.CreatedAt = createdAt
	return o
}

// SumItems считает сумму позиций.
func SumItems(items []OrderItem) Money {
	var total Money
	for _, item := range items {
		total += item.Price
	}
	return total
}

// ValidateItems проверяет позиции перед созданием заказа.
func ValidateItems(items []OrderItem) []error {
	var errs []error
	for i, item := range items {
		if item.Name == "" {
			errs = append(errs, NewValidationError(fmt.Sprintf("items[%d].name", i), "item name is required"))
		}
		if item.Price < 0 {
			errs = append(errs, NewValidationError(fmt.Sprintf("items[%d].price", i), "price must be non-negative"))
		}
	}
	return errs
}

// DemoOrderItems: комбо, которое кухня получает, когда заказ создаётся без позиций.
func DemoOrderItems() []OrderItem {
	return []OrderItem{
		{Name: "Hambúrguer Clássico", Price: MoneyFromReais(25, 0)},
		{Name: "Batata Frita", Price: MoneyFromReais(12, 0)},
		{Name: "Refrigerante", Price: MoneyFromReais(8, 0)},
	}
}

// OrderStats: счётчики активных заказов для панели кухни.
type OrderStats struct {
	Pending   int `json:"pending"`
	Preparing int `json:"preparing"`
}
