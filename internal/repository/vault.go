package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ismail-169/sentinel-finance-sub000/internal/database"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type VaultRepository interface {
	FindByVaultAddress(ctx context.Context, vaultAddress string) (*model.Vault, error)
	FindByWallet(ctx context.Context, walletAddress string) (*model.Vault, error)
	FindAll(ctx context.Context) ([]model.Vault, error)
	Create(ctx context.Context, params model.RegisterVaultParams) (*model.Vault, error)
	UpdateLimits(ctx context.Context, vaultAddress string, limits model.VaultLimits) error
	// AdjustBalance applies a signed wei delta to the stored balance in a
	// single statement, so concurrent adjustments never overwrite each
	// other. Returns nil when the vault does not exist or the debit would
	// drive the balance negative.
	AdjustBalance(ctx context.Context, vaultAddress string, deltaWei string) (*model.Vault, error)
	NextRequestID(ctx context.Context, vaultAddress string) (int64, error)
	// WithTx returns a copy of the repository bound to the transaction.
	WithTx(tx *sqlx.Tx) VaultRepository
}

type vaultRepo struct {
	db database.DBTX
}

func NewVaultRepository(db *sqlx.DB) VaultRepository {
	return &vaultRepo{db: db}
}

func (r *vaultRepo) WithTx(tx *sqlx.Tx) VaultRepository {
	return &vaultRepo{db: tx}
}

func (r *vaultRepo) FindByVaultAddress(ctx context.Context, vaultAddress string) (*model.Vault, error) {
	var v model.Vault
	err := r.db.GetContext(ctx, &v, `
		SELECT * FROM vaults WHERE vault_address = $1
	`, vaultAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vaultRepo) FindByWallet(ctx context.Context, walletAddress string) (*model.Vault, error) {
	var v model.Vault
	err := r.db.GetContext(ctx, &v, `
		SELECT * FROM vaults WHERE wallet_address = $1
	`, walletAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vaultRepo) FindAll(ctx context.Context) ([]model.Vault, error) {
	var vaults []model.Vault
	err := r.db.SelectContext(ctx, &vaults, `
		SELECT * FROM vaults ORDER BY created_at DESC
	`)
	return vaults, err
}

func (r *vaultRepo) Create(ctx context.Context, params model.RegisterVaultParams) (*model.Vault, error) {
	var v model.Vault
	err := r.db.GetContext(ctx, &v, `
		INSERT INTO vaults (vault_address, wallet_address, network, daily_limit_wei, tx_limit_wei, timelock_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.VaultAddress, params.WalletAddress, params.Network,
		params.DailyLimitWei, params.TxLimitWei, params.TimelockSeconds)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vaultRepo) UpdateLimits(ctx context.Context, vaultAddress string, limits model.VaultLimits) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE vaults SET
			daily_limit_wei = $2,
			tx_limit_wei = $3,
			timelock_seconds = $4,
			updated_at = NOW()
		WHERE vault_address = $1
	`, vaultAddress, limits.DailyLimitWei, limits.TxLimitWei, limits.TimelockSeconds)
	return err
}

func (r *vaultRepo) AdjustBalance(ctx context.Context, vaultAddress string, deltaWei string) (*model.Vault, error) {
	var v model.Vault
	err := r.db.GetContext(ctx, &v, `
		UPDATE vaults SET
			balance_wei = (balance_wei::NUMERIC + $2::NUMERIC)::TEXT,
			updated_at = NOW()
		WHERE vault_address = $1
		  AND balance_wei::NUMERIC + $2::NUMERIC >= 0
		RETURNING *
	`, vaultAddress, deltaWei)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vaultRepo) NextRequestID(ctx context.Context, vaultAddress string) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		UPDATE vaults SET
			request_counter = request_counter + 1,
			updated_at = NOW()
		WHERE vault_address = $1
		RETURNING request_counter
	`, vaultAddress)
	return id, err
}
