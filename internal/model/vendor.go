package model

import "time"

// Vendor is a named destination address scoped to one owner wallet.
// Trust affects only future payment requests, never existing ones.
type Vendor struct {
	WalletAddress    string    `db:"wallet_address" json:"walletAddress"`
	Address          string    `db:"address" json:"address"`
	Name             string    `db:"name" json:"name"`
	Trusted          bool      `db:"trusted" json:"trusted"`
	TotalReceivedWei string    `db:"total_received_wei" json:"totalReceivedWei"`
	TransactionCount int64     `db:"transaction_count" json:"transactionCount"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

type UpsertVendorParams struct {
	WalletAddress string
	Address       string
	Name          string
	Trusted       bool
}
