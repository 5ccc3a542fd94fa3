package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type AgentWalletRepository interface {
	FindByUser(ctx context.Context, userAddress string) (*model.AgentWallet, error)
	FindByAgentAddress(ctx context.Context, agentAddress string) (*model.AgentWallet, error)
	Save(ctx context.Context, params model.SaveAgentWalletParams) (*model.AgentWallet, error)
	Delete(ctx context.Context, userAddress string) error
}

type agentWalletRepo struct {
	db *sqlx.DB
}

func NewAgentWalletRepository(db *sqlx.DB) AgentWalletRepository {
	return &agentWalletRepo{db: db}
}

func (r *agentWalletRepo) FindByUser(ctx context.Context, userAddress string) (*model.AgentWallet, error) {
	var w model.AgentWallet
	err := r.db.GetContext(ctx, &w, `
		SELECT * FROM agent_wallets WHERE user_address = $1
	`, userAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *agentWalletRepo) FindByAgentAddress(ctx context.Context, agentAddress string) (*model.AgentWallet, error) {
	var w model.AgentWallet
	err := r.db.GetContext(ctx, &w, `
		SELECT * FROM agent_wallets WHERE agent_address = $1
	`, agentAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *agentWalletRepo) Save(ctx context.Context, params model.SaveAgentWalletParams) (*model.AgentWallet, error) {
	var w model.AgentWallet
	err := r.db.GetContext(ctx, &w, `
		INSERT INTO agent_wallets (user_address, agent_address, vault_address, encrypted_key, network)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_address) DO UPDATE SET
			agent_address = EXCLUDED.agent_address,
			vault_address = EXCLUDED.vault_address,
			encrypted_key = EXCLUDED.encrypted_key,
			network = EXCLUDED.network,
			updated_at = NOW()
		RETURNING *
	`, params.UserAddress, params.AgentAddress, params.VaultAddress, params.EncryptedKey, params.Network)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *agentWalletRepo) Delete(ctx context.Context, userAddress string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM agent_wallets WHERE user_address = $1
	`, userAddress)
	return err
}
