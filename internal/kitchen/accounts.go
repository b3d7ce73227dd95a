package kitchen

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// roleAdministrator: роль учётных записей, созданных через панель.
const roleAdministrator = "Administrador"

// AccountView: учётная запись в том виде, в котором её можно показывать.
type AccountView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	// Deletable=false для последней оставшейся записи.
	Deletable bool `json:"deletable"`
}

func viewAccount(acc domain.AdminAccount, deletable bool) AccountView {
	return AccountView{
		ID:        acc.ID,
		Email:     acc.Email,
		Role:      acc.Role,
		CreatedAt: acc.CreatedAt,
		Deletable: deletable,
	}
}

func viewAccounts(accounts []domain.AdminAccount) []AccountView {
	views := make([]AccountView, 0, len(accounts))
	for _, acc := range accounts {
		views = append(views, viewAccount(acc, len(accounts) > 1))
	}
	return views
}

// CreateAdminAccount добавляет администратора. Email уникален без учёта регистра.
func (a *Admin) CreateAdminAccount(ctx context.Context, in domain.AccountInput) (AccountView, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return AccountView{}, a.rejectAll("create_account", errs)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cfg.BcryptCost)
	if err != nil {
		return AccountView{}, a.reject("create_account", domain.NewValidationError("password", err.Error()))
	}

	email := domain.NormalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = roleAdministrator
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for range a.accounts.List(func(acc domain.AdminAccount) bool { return acc.Email == email }) {
		return AccountView{}, a.reject("create_account", domain.NewValidationError("email", "email is already registered"))
	}

	acc, err := a.accounts.Create(ctx, domain.AdminAccount{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		return AccountView{}, fmt.Errorf("create admin account: %w", err)
	}
	return viewAccount(acc, a.accounts.Len() > 1), nil
}

// DeleteAdminAccount удаляет администратора. Последнюю запись удалить нельзя, какой бы ID ни был передан.
func (a *Admin) DeleteAdminAccount(ctx context.Context, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accounts.Len() <= 1 {
		return false, a.reject("delete_account", domain.ErrLastAccount)
	}
	removed, err := a.accounts.Remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete admin account: %w", err)
	}
	if !removed {
		a.miss("delete_account", id)
	}
	return removed, nil
}

// Accounts возвращает учётные записи без хешей паролей.
func (a *Admin) Accounts() []AccountView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return viewAccounts(a.accounts.Snapshot())
}

// VerifyCredentials проверяет пару email/пароль.
func (a *Admin) VerifyCredentials(email, password string) (AccountView, bool) {
	normalized := domain.NormalizeEmail(email)

	a.mu.Lock()
	accounts := a.accounts.Snapshot()
	a.mu.Unlock()

	for _, acc := range accounts {
		if acc.Email != normalized {
			continue
		}
		if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
			return AccountView{}, false
		}
		return viewAccount(acc, len(accounts) > 1), true
	}
	return AccountView{}, false
}
