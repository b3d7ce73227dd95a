package domain

import "time"

// Product: позиция меню клиентской страницы, которую можно положить в корзину.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Money  `json:"price_minor"`
	Image       string `json:"image"`
	Tab         string `json:"tab"`
}

// CartLine: строка корзины. ID совпадает с ID продукта, поэтому на продукт всегда одна строка.
type CartLine struct {
	Meta
	Name     string `json:"name"`
	Price    Money  `json:"price_minor"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// WithIdentity возвращает копию строки с заданными ID и временем создания.
func (l CartLine) WithIdentity(id string, createdAt time.Time) CartLine {
	l.ID = id
	l.CreatedAt = createdAt
	return l
}

// LineTotal возвращает стоимость строки (цена × количество).
func (l CartLine) LineTotal() Money {
	return l.Price.Times(l.Quantity)
}

// NewCartLine создаёт строку корзины для продукта с количеством 1.
func NewCartLine(p Product) CartLine {
	return CartLine{
		Meta:     Meta{ID: p.ID},
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Quantity: 1,
	}
}

// Validate проверяет продукт перед добавлением в корзину.
func (p Product) Validate() []error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, NewValidationError("id", "product id is required"))
	}
	if p.Price < 0 {
		errs = append(errs, NewValidationError("price", "price must be non-negative"))
	}
	return errs
}
