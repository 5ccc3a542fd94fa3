// Package ledger defines the Ledger Account boundary: an external balance
// holder with balance/transfer/approve/allowance primitives. The vault,
// agent, and savings services consume this interface; they do not define
// token transfer mechanics.
package ledger

import (
	"context"
	"errors"
	"math/big"
)

var (
	// ErrInsufficientFunds means the source balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrUnavailable means the ledger backend could not be reached; the
	// operation may succeed on retry.
	ErrUnavailable = errors.New("ledger: backend unavailable")
)

// Ledger is the balance-holding collaborator. Every call is a blocking
// round-trip; callers must not assume effect until it returns.
type Ledger interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
	// Transfer moves amount from one account to another and returns a
	// backend-specific transaction reference.
	Transfer(ctx context.Context, from, to string, amount *big.Int) (string, error)
	Approve(ctx context.Context, owner, spender string, amount *big.Int) (string, error)
	Allowance(ctx context.Context, owner, spender string) (*big.Int, error)
	// NativeBalance reports the gas-token balance of an account, distinct
	// from its token balance. Backends without a gas concept return zero.
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
}
