package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.OrderStatus
		ok       bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusPreparing, true},
		{domain.OrderStatusPreparing, domain.OrderStatusReady, true},
		{domain.OrderStatusPending, domain.OrderStatusReady, false},
		{domain.OrderStatusPreparing, domain.OrderStatusPending, false},
		{domain.OrderStatusReady, domain.OrderStatusPending, false},
		{domain.OrderStatusPending, domain.OrderStatusPending, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
		err := tc.from.CheckTransition(tc.to)
		if tc.ok {
			require.NoError(t, err)
		} else {
			require.True(t, errors.Is(err, domain.ErrInvalidTransition))
		}
	}
}

func TestOrderStatusCheckTransition_UnknownStatus(t *testing.T) {
	err := domain.OrderStatusPending.CheckTransition("cooked")
	require.True(t, domain.IsValidation(err))
}

func TestDemoOrderItemsTotal(t *testing.T) {
	items := domain.DemoOrderItems()
	require.Len(t, items, 3)
	require.Equal(t, domain.MoneyFromReais(45, 0), domain.SumItems(items))
	require.Empty(t, domain.ValidateItems(items))
}

func TestValidateItems(t *testing.T) {
	errs := domain.ValidateItems([]domain.OrderItem{{Name: "", Price: -1}})
	require.Len(t, errs, 2)
	fields := domain.FieldErrors(errors.Join(errs...))
	require.Contains(t, fields, "items[0].name")
	require.Contains(t, fields, "items[0].price")
}
