package kitchen

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

// AddOrderToTable создаёт заказ для стола и переводит статус заказа стола в pending.
// Без позиций создаётся демонстрационное комбо. Неизвестный стол: тихий промах.
func (a *Admin) AddOrderToTable(ctx context.Context, tableID string, items ...domain.OrderItem) (domain.Order, bool, error) {
	if len(items) == 0 {
		items = domain.DemoOrderItems()
	}
	if errs := domain.ValidateItems(items); len(errs) > 0 {
		return domain.Order{}, false, a.rejectAll("add_order", errs)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	table, ok := a.tables.Find(tableID)
	if !ok {
		a.miss("add_order", tableID)
		return domain.Order{}, false, nil
	}

	tx := state.Begin(a.kv)
	order := state.Stage(tx, a.orders).Create(domain.Order{
		TableID:      table.ID,
		TableNumber:  table.Number,
		CustomerName: table.DisplayCustomer(),
		Items:        append([]domain.OrderItem(nil), items...),
		Status:       domain.OrderStatusPending,
		Total:        domain.SumItems(items),
	})
	state.Stage(tx, a.tables).Update(table.ID, func(t domain.Table) domain.Table {
		t.OrderStatus = domain.OrderStatusPending
		return t
	})
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, true, fmt.Errorf("add order to table %d: %w", table.Number, err)
	}

	a.logger.WithField("table", table.Number).WithField("order_id", order.ID).Info("order added")
	return order, true, nil
}

// UpdateOrderStatus продвигает заказ по цепочке pending → preparing → ready.
// Готовый заказ уходит в архив. Статус заказа стола зеркалирует его последний активный неоплаченный заказ;
// оплаченные заказы стол не трогают.
// Неизвестный заказ: тихий промах; отсутствующий стол допускается.
func (a *Admin) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, ok := a.orders.Find(orderID)
	if !ok {
		a.miss("update_order_status", orderID)
		return domain.Order{}, false, nil
	}
	if err := current.Status.CheckTransition(status); err != nil {
		return domain.Order{}, true, a.reject("update_order_status", err)
	}

	tx := state.Begin(a.kv)
	orders := state.Stage(tx, a.orders)
	var updated domain.Order
	if status == domain.OrderStatusReady {
		archivedAt := a.now()
		updated = current
		updated.Status = status
		updated.ArchivedAt = &archivedAt
		orders.Remove(orderID)
		state.Stage(tx, a.archive).Put(updated)
	} else {
		updated, _ = orders.Update(orderID, func(o domain.Order) domain.Order {
			o.Status = status
			return o
		})
	}

	_, tableExists := a.tables.Find(current.TableID)
	switch {
	case current.Settled:
		// счёт уже закрыт, стол мог быть занят новыми гостями
	case tableExists:
		mirror := status
		if latest, ok := latestActiveOrder(orders, current.TableID); ok {
			mirror = latest.Status
		}
		state.Stage(tx, a.tables).Update(current.TableID, func(t domain.Table) domain.Table {
			t.OrderStatus = mirror
			return t
		})
	default:
		a.logger.WithField("order_id", orderID).WithField("table_id", current.TableID).
			Debug("order references a deleted table")
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, true, fmt.Errorf("update order %s status: %w", orderID, err)
	}
	return updated, true, nil
}

// ActiveOrders возвращает заказы, которые ещё не готовы.
func (a *Admin) ActiveOrders() []domain.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orders.Snapshot()
}

// ArchivedOrders возвращает готовые заказы.
func (a *Admin) ArchivedOrders() []domain.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.archive.Snapshot()
}

// Order ищет активный заказ по ID.
func (a *Admin) Order(id string) (domain.Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orders.Find(id)
}

// OrderStats считает активные заказы по статусам.
func (a *Admin) OrderStats() domain.OrderStats {
	return countOrders(a.ActiveOrders())
}

func countOrders(orders []domain.Order) domain.OrderStats {
	var stats domain.OrderStats
	for _, o := range orders {
		switch o.Status {
		case domain.OrderStatusPending:
			stats.Pending++
		case domain.OrderStatusPreparing:
			stats.Preparing++
		}
	}
	return stats
}

// latestActiveOrder возвращает последний по порядку вставки активный заказ стола.
func latestActiveOrder(orders *state.Staged[domain.Order], tableID string) (domain.Order, bool) {
	var (
		latest domain.Order
		found  bool
	)
	for o := range orders.List(func(o domain.Order) bool { return o.TableID == tableID && !o.Settled }) {
		latest, found = o, true
	}
	return latest, found
}
