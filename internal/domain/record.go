package domain

import "time"

// Meta содержит поля, общие для всех записей коллекций: стабильный ID и момент создания.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordID возвращает идентификатор записи.
func (m Meta) RecordID() string {
	return m.ID
}

// RecordCreatedAt возвращает момент создания записи.
func (m Meta) RecordCreatedAt() time.Time {
	return m.CreatedAt
}
