package fuel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/engine/errs"
)

func TestSpendDeductsFromBudget(t *testing.T) {
	tr := New(100)
	require.NoError(t, tr.Spend(context.Background(), 40))
	require.Equal(t, int64(60), tr.Remaining())
}

func TestSpendErrorsOnceBudgetExhausted(t *testing.T) {
	tr := New(10)
	require.NoError(t, tr.Spend(context.Background(), 10))
	err := tr.Spend(context.Background(), 1)
	require.ErrorIs(t, err, errs.ErrFuelExceeded)
}

func TestSpendRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(100)
	err := tr.Spend(ctx, 1)
	require.Error(t, err)
}

func TestElapsedIsNonNegative(t *testing.T) {
	tr := New(1)
	require.GreaterOrEqual(t, tr.Elapsed().Nanoseconds(), int64(0))
}
