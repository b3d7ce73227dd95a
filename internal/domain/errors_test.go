package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

func TestValidationErrorIsValidation(t *testing.T) {
	err := fmt.Errorf("create: %w", domain.NewValidationError("name", "name is required"))
	require.True(t, domain.IsValidation(err))
	require.Equal(t, "create: name: name is required", err.Error())

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "name", verr.Field)
}

func TestFieldErrorsWalksJoinedErrors(t *testing.T) {
	err := errors.Join(
		domain.NewValidationError("email", "email is required"),
		domain.NewValidationError("password", "password is required"),
		errors.New("unrelated"),
	)
	require.Equal(t, map[string]string{
		"email":    "email is required",
		"password": "password is required",
	}, domain.FieldErrors(err))
}

func TestLastAccountIsInvariantViolation(t *testing.T) {
	require.True(t, errors.Is(domain.ErrLastAccount, domain.ErrInvariantViolation))
	require.False(t, domain.IsValidation(domain.ErrLastAccount))
}
