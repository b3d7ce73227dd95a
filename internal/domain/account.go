package domain

import (
	"net/mail"
	"strings"
	"time"
)

// DefaultAdminRole: роль стартовой учётной записи.
const DefaultAdminRole = "Administrador Principal"

// AdminAccount: учётная запись администратора. PasswordHash не покидает сервис.
type AdminAccount struct {
	Meta
	Email        string `json:"email"`
	PasswordHash []byte `json:"password_hash"`
	Role         string `json:"role"`
}

// WithIdentity возвращает копию учётной записи с заданными ID и временем создания.
func (a AdminAccount) WithIdentity(id string, createdAt time.Time) AdminAccount {
	a.ID = id
	a.CreatedAt = createdAt
	return a
}

// NormalizeEmail приводит email к виду, в котором сравнивается уникальность.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountInput: поля формы создания администратора.
type AccountInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role"`
}

// Validate проверяет поля формы без учёта уникальности email.
func (in AccountInput) Validate() []error {
	var errs []error
	email := NormalizeEmail(in.Email)
	switch {
	case email == "":
		errs = append(errs, NewValidationError("email", "email is required"))
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			errs = append(errs, NewValidationError("email", "email is malformed"))
		}
	}
	if in.Password == "" {
		errs = append(errs, NewValidationError("password", "password is required"))
	} else if in.Password != in.ConfirmPassword {
		errs = append(errs, NewValidationError("confirm_password", "passwords do not match"))
	}
	return errs
}
