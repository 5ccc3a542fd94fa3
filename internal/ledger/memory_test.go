package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	l.Mint("0xAAA0000000000000000000000000000000000001", big.NewInt(1000))

	ref, err := l.Transfer(ctx, "0xAAA0000000000000000000000000000000000001", "0xBBB0000000000000000000000000000000000002", big.NewInt(400))
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	from, _ := l.BalanceOf(ctx, "0xaaa0000000000000000000000000000000000001")
	to, _ := l.BalanceOf(ctx, "0xbbb0000000000000000000000000000000000002")
	assert.Equal(t, int64(600), from.Int64())
	assert.Equal(t, int64(400), to.Int64())
}

func TestMemoryLedgerInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	l.Mint("0x01", big.NewInt(100))

	_, err := l.Transfer(ctx, "0x01", "0x02", big.NewInt(101))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Failed transfer leaves balances untouched.
	from, _ := l.BalanceOf(ctx, "0x01")
	assert.Equal(t, int64(100), from.Int64())
}

func TestMemoryLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	l.Mint("0x01", big.NewInt(100))

	_, err := l.Transfer(ctx, "0x01", "0x02", big.NewInt(0))
	assert.Error(t, err)

	_, err = l.Transfer(ctx, "0x01", "0x02", big.NewInt(-5))
	assert.Error(t, err)
}

func TestMemoryLedgerAllowance(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	_, err := l.Approve(ctx, "0x01", "0x02", big.NewInt(250))
	require.NoError(t, err)

	allowance, err := l.Allowance(ctx, "0x01", "0x02")
	require.NoError(t, err)
	assert.Equal(t, int64(250), allowance.Int64())

	none, err := l.Allowance(ctx, "0x01", "0x03")
	require.NoError(t, err)
	assert.Equal(t, int64(0), none.Int64())
}
