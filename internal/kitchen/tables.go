package kitchen

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// CreateTable добавляет стол. Номер должен быть положительным и уникальным.
func (a *Admin) CreateTable(ctx context.Context, in domain.TableInput) (domain.Table, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return domain.Table{}, a.rejectAll("create_table", errs)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkTableNumber(in.Number, ""); err != nil {
		return domain.Table{}, a.reject("create_table", err)
	}
	status := in.Status
	if status == "" {
		status = domain.TableStatusFree
	}
	table, err := a.tables.Create(ctx, domain.Table{
		Number:        in.Number,
		CustomerName:  in.CustomerName,
		PeopleCount:   in.PeopleCount,
		Status:        status,
		OrderStatus:   domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
	})
	if err != nil {
		return domain.Table{}, fmt.Errorf("create table: %w", err)
	}
	return table, nil
}

// UpdateTable меняет поля формы стола; статусы заказа и оплаты сохраняются.
// Неизвестный ID: тихий промах.
func (a *Admin) UpdateTable(ctx context.Context, id string, in domain.TableInput) (domain.Table, bool, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return domain.Table{}, false, a.rejectAll("update_table", errs)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.tables.Find(id); !ok {
		a.miss("update_table", id)
		return domain.Table{}, false, nil
	}
	if err := a.checkTableNumber(in.Number, id); err != nil {
		return domain.Table{}, true, a.reject("update_table", err)
	}
	table, found, err := a.tables.Update(ctx, id, func(t domain.Table) domain.Table {
		t.Number = in.Number
		t.CustomerName = in.CustomerName
		t.PeopleCount = in.PeopleCount
		if in.Status != "" {
			t.Status = in.Status
		}
		return t
	})
	if err != nil {
		return domain.Table{}, found, fmt.Errorf("update table: %w", err)
	}
	return table, found, nil
}

// DeleteTable удаляет стол. Заказы стола остаются видимыми со снимком номера.
func (a *Admin) DeleteTable(ctx context.Context, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed, err := a.tables.Remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete table: %w", err)
	}
	if !removed {
		a.miss("delete_table", id)
	}
	return removed, nil
}

// Tables возвращает столы в порядке создания.
func (a *Admin) Tables() []domain.Table {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tables.Snapshot()
}

// Table возвращает стол по ID.
func (a *Admin) Table(id string) (domain.Table, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tables.Find(id)
}

func (a *Admin) checkTableNumber(number int, exceptID string) error {
	for range a.tables.List(func(t domain.Table) bool { return t.Number == number && t.ID != exceptID }) {
		return domain.NewValidationError("number", fmt.Sprintf("table %d already exists", number))
	}
	return nil
}
