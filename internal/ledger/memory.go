package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

// MemoryLedger is an in-process Ledger used for development and tests.
// Operations are atomic relative to each other; a transfer either fully
// applies or fully fails.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[string]*big.Int
	allowances map[string]*big.Int
	seq        int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
	}
}

// Mint credits an account out of thin air. Test/dev helper, not part of
// the Ledger interface.
func (l *MemoryLedger) Mint(address string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	addr := model.NormalizeAddress(address)
	l.balances[addr] = new(big.Int).Add(l.balanceLocked(addr), amount)
}

func (l *MemoryLedger) BalanceOf(_ context.Context, address string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(model.NormalizeAddress(address))), nil
}

func (l *MemoryLedger) Transfer(_ context.Context, from, to string, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("ledger: transfer amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	src := model.NormalizeAddress(from)
	dst := model.NormalizeAddress(to)

	balance := l.balanceLocked(src)
	if balance.Cmp(amount) < 0 {
		return "", ErrInsufficientFunds
	}

	l.balances[src] = new(big.Int).Sub(balance, amount)
	l.balances[dst] = new(big.Int).Add(l.balanceLocked(dst), amount)

	l.seq++
	return fmt.Sprintf("mem-%d", l.seq), nil
}

func (l *MemoryLedger) Approve(_ context.Context, owner, spender string, amount *big.Int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey(owner, spender)
	l.allowances[key] = new(big.Int).Set(amount)

	l.seq++
	return fmt.Sprintf("mem-%d", l.seq), nil
}

func (l *MemoryLedger) Allowance(_ context.Context, owner, spender string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.allowances[allowanceKey(owner, spender)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

// The in-memory backend has no gas concept.
func (l *MemoryLedger) NativeBalance(_ context.Context, _ string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (l *MemoryLedger) balanceLocked(addr string) *big.Int {
	if v, ok := l.balances[addr]; ok {
		return v
	}
	return big.NewInt(0)
}

func allowanceKey(owner, spender string) string {
	return model.NormalizeAddress(owner) + ":" + model.NormalizeAddress(spender)
}
