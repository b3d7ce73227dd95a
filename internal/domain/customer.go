package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MinCustomerNameLength: минимальная длина имени при регистрации (в рунах).
const MinCustomerNameLength = 3

// Customer: гость, оставивший имя в форме регистрации.
type Customer struct {
	Meta
	Name string `json:"name"`
}

// WithIdentity возвращает копию гостя с заданными ID и временем создания.
func (c Customer) WithIdentity(id string, createdAt time.Time) Customer {
	c.ID = id
	c.CreatedAt = createdAt
	return c
}

// NormalizeCustomerName обрезает пробелы и проверяет длину имени.
func NormalizeCustomerName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) < MinCustomerNameLength {
		return "", NewValidationError("name", "name must have at least 3 characters")
	}
	return name, nil
}
