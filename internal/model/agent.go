package model

import "time"

// AgentWallet is the stored record of a derived secondary identity.
// EncryptedKey is ciphertext only decryptable with a fresh derivation
// signature from the owning wallet; plaintext key material is never stored.
type AgentWallet struct {
	UserAddress  string    `db:"user_address" json:"userAddress"`
	AgentAddress string    `db:"agent_address" json:"agentAddress"`
	VaultAddress string    `db:"vault_address" json:"vaultAddress"`
	EncryptedKey string    `db:"encrypted_key" json:"-"`
	Network      string    `db:"network" json:"network"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type SaveAgentWalletParams struct {
	UserAddress  string
	AgentAddress string
	VaultAddress string
	EncryptedKey string
	Network      string
}
