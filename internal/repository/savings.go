package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ismail-169/sentinel-finance-sub000/internal/database"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type SavingsRepository interface {
	FindByID(ctx context.Context, id string) (*model.SavingsPlan, error)
	FindByOwner(ctx context.Context, ownerAddress string) ([]model.SavingsPlan, error)
	Create(ctx context.Context, params model.CreateSavingsPlanParams) (*model.SavingsPlan, error)
	AddDeposit(ctx context.Context, id string, amountWei string) error
	MarkWithdrawn(ctx context.Context, id string, at time.Time) error
	// TotalLockedByOwner sums deposits across the owner's unwithdrawn plans.
	TotalLockedByOwner(ctx context.Context, ownerAddress string) (string, error)
	// FindUnlockedUnnotified returns plans whose unlock time has passed but
	// whose owner has not been notified yet.
	FindUnlockedUnnotified(ctx context.Context, now time.Time) ([]model.SavingsPlan, error)
	MarkUnlockNotified(ctx context.Context, id string) error
	// WithTx returns a copy of the repository bound to the transaction.
	WithTx(tx *sqlx.Tx) SavingsRepository
}

type savingsRepo struct {
	db database.DBTX
}

func NewSavingsRepository(db *sqlx.DB) SavingsRepository {
	return &savingsRepo{db: db}
}

func (r *savingsRepo) WithTx(tx *sqlx.Tx) SavingsRepository {
	return &savingsRepo{db: tx}
}

func (r *savingsRepo) FindByID(ctx context.Context, id string) (*model.SavingsPlan, error) {
	var p model.SavingsPlan
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM savings_plans WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *savingsRepo) FindByOwner(ctx context.Context, ownerAddress string) ([]model.SavingsPlan, error) {
	var plans []model.SavingsPlan
	err := r.db.SelectContext(ctx, &plans, `
		SELECT * FROM savings_plans
		WHERE owner_address = $1
		ORDER BY created_at DESC
	`, ownerAddress)
	return plans, err
}

func (r *savingsRepo) Create(ctx context.Context, params model.CreateSavingsPlanParams) (*model.SavingsPlan, error) {
	var p model.SavingsPlan
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO savings_plans (id, owner_address, agent_address, vault_address, name, unlock_at, recurring)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.ID, params.OwnerAddress, params.AgentAddress, params.VaultAddress,
		params.Name, params.UnlockAt, params.Recurring)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *savingsRepo) AddDeposit(ctx context.Context, id string, amountWei string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE savings_plans SET
			total_deposited_wei = (total_deposited_wei::NUMERIC + $2::NUMERIC)::TEXT,
			updated_at = NOW()
		WHERE id = $1 AND NOT withdrawn
	`, id, amountWei)
	return err
}

func (r *savingsRepo) MarkWithdrawn(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE savings_plans SET
			withdrawn = TRUE,
			withdrawn_at = $2,
			updated_at = NOW()
		WHERE id = $1 AND NOT withdrawn
	`, id, at)
	return err
}

func (r *savingsRepo) TotalLockedByOwner(ctx context.Context, ownerAddress string) (string, error) {
	var total string
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(total_deposited_wei::NUMERIC), 0)::TEXT FROM savings_plans
		WHERE owner_address = $1 AND NOT withdrawn
	`, ownerAddress)
	return total, err
}

func (r *savingsRepo) FindUnlockedUnnotified(ctx context.Context, now time.Time) ([]model.SavingsPlan, error) {
	var plans []model.SavingsPlan
	err := r.db.SelectContext(ctx, &plans, `
		SELECT * FROM savings_plans
		WHERE unlock_at <= $1 AND NOT withdrawn AND NOT unlock_notified
	`, now)
	return plans, err
}

func (r *savingsRepo) MarkUnlockNotified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE savings_plans SET
			unlock_notified = TRUE,
			updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}
