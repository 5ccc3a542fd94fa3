package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type VendorRepository interface {
	FindByWallet(ctx context.Context, walletAddress string) ([]model.Vendor, error)
	FindByAddress(ctx context.Context, walletAddress, address string) (*model.Vendor, error)
	// TrustedAddresses returns the addresses currently flagged trusted for
	// a wallet; the caller recomputes the allowlist on every operation.
	TrustedAddresses(ctx context.Context, walletAddress string) ([]string, error)
	IsTrusted(ctx context.Context, walletAddress, address string) (bool, error)
	Upsert(ctx context.Context, params model.UpsertVendorParams) (*model.Vendor, error)
	SetTrusted(ctx context.Context, walletAddress, address string, trusted bool) error
	RecordPayment(ctx context.Context, walletAddress, address, amountWei string) error
}

type vendorRepo struct {
	db *sqlx.DB
}

func NewVendorRepository(db *sqlx.DB) VendorRepository {
	return &vendorRepo{db: db}
}

func (r *vendorRepo) FindByWallet(ctx context.Context, walletAddress string) ([]model.Vendor, error) {
	var vendors []model.Vendor
	err := r.db.SelectContext(ctx, &vendors, `
		SELECT * FROM vendors
		WHERE wallet_address = $1
		ORDER BY name, address
	`, walletAddress)
	return vendors, err
}

func (r *vendorRepo) FindByAddress(ctx context.Context, walletAddress, address string) (*model.Vendor, error) {
	var v model.Vendor
	err := r.db.GetContext(ctx, &v, `
		SELECT * FROM vendors
		WHERE wallet_address = $1 AND address = $2
	`, walletAddress, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vendorRepo) TrustedAddresses(ctx context.Context, walletAddress string) ([]string, error) {
	var addresses []string
	err := r.db.SelectContext(ctx, &addresses, `
		SELECT address FROM vendors
		WHERE wallet_address = $1 AND trusted
	`, walletAddress)
	return addresses, err
}

func (r *vendorRepo) IsTrusted(ctx context.Context, walletAddress, address string) (bool, error) {
	var trusted bool
	err := r.db.GetContext(ctx, &trusted, `
		SELECT trusted FROM vendors
		WHERE wallet_address = $1 AND address = $2
	`, walletAddress, address)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return trusted, err
}

func (r *vendorRepo) Upsert(ctx context.Context, params model.UpsertVendorParams) (*model.Vendor, error) {
	var v model.Vendor
	err := r.db.GetContext(ctx, &v, `
		INSERT INTO vendors (wallet_address, address, name, trusted)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wallet_address, address) DO UPDATE SET
			name = EXCLUDED.name,
			trusted = EXCLUDED.trusted,
			updated_at = NOW()
		RETURNING *
	`, params.WalletAddress, params.Address, params.Name, params.Trusted)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vendorRepo) SetTrusted(ctx context.Context, walletAddress, address string, trusted bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vendors (wallet_address, address, trusted)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet_address, address) DO UPDATE SET
			trusted = EXCLUDED.trusted,
			updated_at = NOW()
	`, walletAddress, address, trusted)
	return err
}

func (r *vendorRepo) RecordPayment(ctx context.Context, walletAddress, address, amountWei string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE vendors SET
			total_received_wei = (total_received_wei::NUMERIC + $3::NUMERIC)::TEXT,
			transaction_count = transaction_count + 1,
			updated_at = NOW()
		WHERE wallet_address = $1 AND address = $2
	`, walletAddress, address, amountWei)
	return err
}
