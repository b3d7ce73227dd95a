package kitchen

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

// FinalizePayment закрывает счёт стола: пишет запись в историю на сумму неоплаченных заказов,
// помечает эти заказы оплаченными и освобождает стол. Неизвестный стол: тихий промах.
func (a *Admin) FinalizePayment(ctx context.Context, tableID string) (domain.HistoryEntry, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	table, ok := a.tables.Find(tableID)
	if !ok {
		a.miss("finalize_payment", tableID)
		return domain.HistoryEntry{}, false, nil
	}

	unsettled := func(o domain.Order) bool { return o.TableID == tableID && !o.Settled }
	settle := func(o domain.Order) domain.Order {
		o.Settled = true
		return o
	}

	tx := state.Begin(a.kv)
	var amount domain.Money
	for _, coll := range []*state.Staged[domain.Order]{state.Stage(tx, a.orders), state.Stage(tx, a.archive)} {
		for o := range coll.List(unsettled) {
			amount += o.Total
			coll.Update(o.ID, settle)
		}
	}

	entry := state.Stage(tx, a.history).Create(domain.HistoryEntry{
		TableNumber:  table.Number,
		CustomerName: table.DisplayCustomer(),
		Amount:       amount,
	})
	state.Stage(tx, a.tables).Update(tableID, func(t domain.Table) domain.Table {
		t.Vacate()
		return t
	})
	if err := tx.Commit(ctx); err != nil {
		return domain.HistoryEntry{}, true, fmt.Errorf("finalize payment for table %d: %w", table.Number, err)
	}

	a.logger.WithField("table", table.Number).WithField("amount", amount.String()).Info("payment finalized")
	return entry, true, nil
}

// History возвращает записи оплат в порядке добавления.
func (a *Admin) History() []domain.HistoryEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Snapshot()
}

// HistoryTotal: сумма всех оплат.
func (a *Admin) HistoryTotal() domain.Money {
	return sumHistory(a.History())
}

// ClearHistory удаляет всю историю оплат.
func (a *Admin) ClearHistory(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.history.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func sumHistory(entries []domain.HistoryEntry) domain.Money {
	var total domain.Money
	for _, e := range entries {
		total += e.Amount
	}
	return total
}
