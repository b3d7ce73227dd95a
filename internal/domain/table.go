package domain

import "time"

// TableStatus: занятость стола в зале.
type TableStatus string

const (
	// TableStatusFree: стол свободен.
	TableStatusFree TableStatus = "free"
	// TableStatusOccupied: за столом сидят гости.
	TableStatusOccupied TableStatus = "occupied"
	// TableStatusReserved: стол забронирован.
	TableStatusReserved TableStatus = "reserved"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s TableStatus) Valid() bool {
	switch s {
	case TableStatusFree, TableStatusOccupied, TableStatusReserved:
		return true
	default:
		return false
	}
}

// PaymentStatus: состояние оплаты стола.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Table описывает стол в зале и зеркалирует статус его последнего активного заказа.
type Table struct {
	Meta
	Number        int           `json:"number"`
	CustomerName  string        `json:"customer_name"`
	PeopleCount   int           `json:"people_count"`
	Status        TableStatus   `json:"status"`
	OrderStatus   OrderStatus   `json:"order_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// WithIdentity возвращает копию стола с заданными ID и временем создания.
func (t Table) WithIdentity(id string, createdAt time.Time) Table {
	t.ID = id
	t.CreatedAt = createdAt
	return t
}

// Vacate сбрасывает стол к значениям свободного стола.
func (t *Table) Vacate() {
	t.CustomerName = ""
	t.PeopleCount = 0
	t.Status = TableStatusFree
	t.OrderStatus = OrderStatusPending
	t.PaymentStatus = PaymentStatusPending
}

// DisplayCustomer возвращает имя гостя или значение по умолчанию.
func (t Table) DisplayCustomer() string {
	if t.CustomerName == "" {
		return DefaultCustomerName
	}
	return t.CustomerName
}

// TableInput: поля формы стола.
type TableInput struct {
	Number       int         `json:"number"`
	CustomerName string      `json:"customer_name"`
	PeopleCount  int         `json:"people_count"`
	Status       TableStatus `json:"status"`
}

// Validate проверяет поля формы стола (уникальность номера проверяет хранилище).
func (in TableInput) Validate() []error {
	var errs []error
	if in.Number <= 0 {
		errs = append(errs, NewValidationError("number", "table number must be a positive integer"))
	}
	if in.PeopleCount < 0 {
		errs = append(errs, NewValidationError("people_count", "people count must be non-negative"))
	}
	if in.Status != "" && !in.Status.Valid() {
		errs = append(errs, NewValidationError("status", "unknown table status"))
	}
	return errs
}
