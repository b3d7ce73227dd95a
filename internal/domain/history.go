package domain

import "time"

// HistoryEntry фиксирует одну закрытую оплату стола.
type HistoryEntry struct {
	Meta
	TableNumber  int       `json:"table_number"`
	CustomerName string    `json:"customer_name"`
	Amount       Money     `json:"amount_minor"`
	PaidAt       time.Time `json:"paid_at"`
}

// WithIdentity возвращает копию записи с заданными ID и временем создания.
func (h HistoryEntry) WithIdentity(id string, createdAt time.Time) HistoryEntry {
	h.ID = id
	h.CreatedAt = createdAt
	if h.PaidAt.IsZero() {
		h.PaidAt = createdAt
	}
	return h
}
