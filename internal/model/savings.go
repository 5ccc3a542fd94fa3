package model

import (
	"math/big"
	"time"
)

// SavingsPlan is a locked, multi-deposit commitment. Deposits are additive
// until withdrawal; withdrawal is all-or-nothing, only after UnlockAt, and
// only toward VaultAddress.
type SavingsPlan struct {
	ID                string     `db:"id" json:"id"`
	OwnerAddress      string     `db:"owner_address" json:"ownerAddress"`
	AgentAddress      string     `db:"agent_address" json:"agentAddress"`
	VaultAddress      string     `db:"vault_address" json:"vaultAddress"`
	Name              string     `db:"name" json:"name"`
	TotalDepositedWei string     `db:"total_deposited_wei" json:"totalDepositedWei"`
	UnlockAt          time.Time  `db:"unlock_at" json:"unlockAt"`
	Recurring         bool       `db:"recurring" json:"recurring"`
	Withdrawn         bool       `db:"withdrawn" json:"withdrawn"`
	WithdrawnAt       *time.Time `db:"withdrawn_at" json:"withdrawnAt,omitempty"`
	UnlockNotified    bool       `db:"unlock_notified" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

func (p *SavingsPlan) TotalDeposited() *big.Int {
	v, _ := ParseWei(p.TotalDepositedWei)
	return v
}

// Unlocked reports whether the plan may be withdrawn at time now.
func (p *SavingsPlan) Unlocked(now time.Time) bool {
	return !now.Before(p.UnlockAt)
}

type CreateSavingsPlanParams struct {
	ID           string
	OwnerAddress string
	AgentAddress string
	VaultAddress string
	Name         string
	UnlockAt     time.Time
	Recurring    bool
}
