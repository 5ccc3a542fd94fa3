package model

import (
	"math/big"
	"time"
)

// Vault is a per-user custodial balance with spending-limit and time-lock
// rules. Amounts are decimal wei strings; balance never goes negative.
type Vault struct {
	VaultAddress    string    `db:"vault_address" json:"vaultAddress"`
	WalletAddress   string    `db:"wallet_address" json:"walletAddress"`
	Network         string    `db:"network" json:"network"`
	BalanceWei      string    `db:"balance_wei" json:"balanceWei"`
	DailyLimitWei   string    `db:"daily_limit_wei" json:"dailyLimitWei"`
	TxLimitWei      string    `db:"tx_limit_wei" json:"txLimitWei"`
	TimelockSeconds int64     `db:"timelock_seconds" json:"timelockSeconds"`
	RequestCounter  int64     `db:"request_counter" json:"requestCounter"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

func (v *Vault) Balance() *big.Int {
	b, _ := ParseWei(v.BalanceWei)
	return b
}

func (v *Vault) DailyLimit() *big.Int {
	b, _ := ParseWei(v.DailyLimitWei)
	return b
}

func (v *Vault) TxLimit() *big.Int {
	b, _ := ParseWei(v.TxLimitWei)
	return b
}

func (v *Vault) Timelock() time.Duration {
	return time.Duration(v.TimelockSeconds) * time.Second
}

type RegisterVaultParams struct {
	WalletAddress   string
	VaultAddress    string
	Network         string
	DailyLimitWei   string
	TxLimitWei      string
	TimelockSeconds int64
}

type VaultLimits struct {
	DailyLimitWei   string `json:"dailyLimitWei"`
	TxLimitWei      string `json:"txLimitWei"`
	TimelockSeconds int64  `json:"timelockSeconds"`
}
