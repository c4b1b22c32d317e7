package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRentalStatusTransitions(t *testing.T) {
	require.True(t, RentalActive.CanTransition(RentalCompleted))
	require.True(t, RentalActive.CanTransition(RentalCancelled))
	require.False(t, RentalCompleted.CanTransition(RentalActive))
	require.False(t, RentalCompleted.CanTransition(RentalCancelled))
	require.False(t, RentalCancelled.CanTransition(RentalCompleted))
	require.False(t, RentalActive.CanTransition(RentalActive))
}

func TestParseEnums(t *testing.T) {
	r, err := ParseRole("admin")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, r)
	_, err = ParseRole("root")
	require.Error(t, err)

	_, err = ParseUmbrellaStatus("lost")
	require.Error(t, err)
	_, err = ParseTransactionType("gift")
	require.Error(t, err)
	require.True(t, TxRefund.IsCredit())
	require.False(t, TxRental.IsCredit())
}

func TestScanEnum(t *testing.T) {
	var s UmbrellaStatus
	require.NoError(t, s.Scan([]byte("out_of_stock")))
	require.Equal(t, UmbrellaOutOfStock, s)

	var rs RentalStatus
	require.NoError(t, rs.Scan("completed"))
	require.Equal(t, RentalCompleted, rs)
	require.Error(t, rs.Scan(nil))
	require.Error(t, rs.Scan(42))
}
