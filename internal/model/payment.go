package model

import (
	"math/big"
	"time"
)

// PaymentRequest is a spending intent recorded against a vault. Once
// Executed or Revoked it is terminal and immutable; the two flags are
// mutually exclusive.
type PaymentRequest struct {
	VaultAddress string     `db:"vault_address" json:"vaultAddress"`
	RequestID    int64      `db:"request_id" json:"requestId"`
	Requester    string     `db:"requester" json:"requester"`
	Destination  string     `db:"destination" json:"destination"`
	AmountWei    string     `db:"amount_wei" json:"amountWei"`
	Memo         string     `db:"memo" json:"memo"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	ExecuteAfter time.Time  `db:"execute_after" json:"executeAfter"`
	Executed     bool       `db:"executed" json:"executed"`
	ExecutedAt   *time.Time `db:"executed_at" json:"executedAt,omitempty"`
	Revoked      bool       `db:"revoked" json:"revoked"`
	RevokeReason string     `db:"revoke_reason" json:"revokeReason,omitempty"`
	TxRef        *string    `db:"tx_ref" json:"txRef,omitempty"`
}

func (p *PaymentRequest) Amount() *big.Int {
	a, _ := ParseWei(p.AmountWei)
	return a
}

// State derives the lifecycle position at time now.
func (p *PaymentRequest) State(now time.Time) RequestState {
	switch {
	case p.Revoked:
		return RequestStateRevoked
	case p.Executed:
		return RequestStateExecuted
	case now.Before(p.ExecuteAfter):
		return RequestStatePending
	default:
		return RequestStateReady
	}
}

type CreatePaymentRequestParams struct {
	VaultAddress string
	RequestID    int64
	Requester    string
	Destination  string
	AmountWei    string
	Memo         string
	CreatedAt    time.Time
	ExecuteAfter time.Time
}
