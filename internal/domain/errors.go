package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation: базовая ошибка для всех отклонённых по валидации операций.
	ErrValidation = errors.New("validation failed")
	// ErrInvariantViolation сигнализирует о попытке нарушить инвариант коллекции.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrLastAccount возвращается при попытке удалить последнюю учётную запись администратора.
	ErrLastAccount = fmt.Errorf("%w: the last admin account cannot be deleted", ErrInvariantViolation)
	// ErrEmptyCart: оформление заказа с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTransition: переход статуса заказа, который пропускает шаг или идёт назад.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrInvalidMoney: строку нельзя разобрать как денежную сумму.
	ErrInvalidMoney = errors.New("invalid money amount")
	// ErrOutboxMessageNotFound: сообщение outbox с таким ID не найдено.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
)

// ValidationError описывает отклонённое поле пользовательского ввода.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError создаёт ошибку валидации для поля.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsValidation проверяет, относится ли ошибка к ошибкам валидации.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// FieldErrors собирает сообщения по полям из цепочки ошибок (включая errors.Join).
func FieldErrors(err error) map[string]string {
	result := make(map[string]string)
	collectFieldErrors(err, result)
	return result
}

func collectFieldErrors(err error, into map[string]string) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			collectFieldErrors(inner, into)
		}
		return
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		into[verr.Field] = verr.Message
	}
}
