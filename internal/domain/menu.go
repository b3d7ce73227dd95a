package domain

import "time"

// MenuItem: блюдо, которым управляет администратор кухни.
type MenuItem struct {
	Meta
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Money  `json:"price_minor"`
	// Image хранится как data URL.
	Image string `json:"image,omitempty"`
}

// WithIdentity возвращает копию блюда с заданными ID и временем создания.
func (m MenuItem) WithIdentity(id string, createdAt time.Time) MenuItem {
	m.ID = id
	m.CreatedAt = createdAt
	return m
}

// MenuItemInput: поля формы блюда без картинки.
type MenuItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Money  `json:"price_minor"`
}

// Validate проверяет поля формы блюда.
func (in MenuItemInput) Validate() []error {
	var errs []error
	if in.Name == "" {
		errs = append(errs, NewValidationError("name", "name is required"))
	}
	if in.Price < 0 {
		errs = append(errs, NewValidationError("price", "price must be non-negative"))
	}
	return errs
}
