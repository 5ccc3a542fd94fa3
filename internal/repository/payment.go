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

type PaymentRepository interface {
	FindByID(ctx context.Context, vaultAddress string, requestID int64) (*model.PaymentRequest, error)
	FindPending(ctx context.Context, vaultAddress string) ([]model.PaymentRequest, error)
	FindHistory(ctx context.Context, vaultAddress string, limit, offset int) ([]model.PaymentRequest, error)
	// SumRequestedSince returns the total requested amount (wei, decimal
	// string) for non-revoked requests created at or after since. Revoked
	// requests release their daily-limit budget.
	SumRequestedSince(ctx context.Context, vaultAddress string, since time.Time) (string, error)
	Create(ctx context.Context, params model.CreatePaymentRequestParams) (*model.PaymentRequest, error)
	MarkExecuted(ctx context.Context, vaultAddress string, requestID int64, txRef string, executedAt time.Time) error
	MarkRevoked(ctx context.Context, vaultAddress string, requestID int64, reason string) error
	// WithTx returns a copy of the repository bound to the transaction.
	WithTx(tx *sqlx.Tx) PaymentRepository
}

type paymentRepo struct {
	db database.DBTX
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) WithTx(tx *sqlx.Tx) PaymentRepository {
	return &paymentRepo{db: tx}
}

func (r *paymentRepo) FindByID(ctx context.Context, vaultAddress string, requestID int64) (*model.PaymentRequest, error) {
	var p model.PaymentRequest
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM payment_requests
		WHERE vault_address = $1 AND request_id = $2
	`, vaultAddress, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) FindPending(ctx context.Context, vaultAddress string) ([]model.PaymentRequest, error) {
	var requests []model.PaymentRequest
	err := r.db.SelectContext(ctx, &requests, `
		SELECT * FROM payment_requests
		WHERE vault_address = $1 AND NOT executed AND NOT revoked
		ORDER BY created_at DESC
	`, vaultAddress)
	return requests, err
}

func (r *paymentRepo) FindHistory(ctx context.Context, vaultAddress string, limit, offset int) ([]model.PaymentRequest, error) {
	var requests []model.PaymentRequest
	err := r.db.SelectContext(ctx, &requests, `
		SELECT * FROM payment_requests
		WHERE vault_address = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, vaultAddress, limit, offset)
	return requests, err
}

func (r *paymentRepo) SumRequestedSince(ctx context.Context, vaultAddress string, since time.Time) (string, error) {
	var sum string
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount_wei::NUMERIC), 0)::TEXT FROM payment_requests
		WHERE vault_address = $1 AND created_at >= $2 AND NOT revoked
	`, vaultAddress, since)
	return sum, err
}

func (r *paymentRepo) Create(ctx context.Context, params model.CreatePaymentRequestParams) (*model.PaymentRequest, error) {
	var p model.PaymentRequest
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO payment_requests (vault_address, request_id, requester, destination, amount_wei, memo, created_at, execute_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, params.VaultAddress, params.RequestID, params.Requester, params.Destination,
		params.AmountWei, params.Memo, params.CreatedAt, params.ExecuteAfter)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) MarkExecuted(ctx context.Context, vaultAddress string, requestID int64, txRef string, executedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_requests SET
			executed = TRUE,
			executed_at = $3,
			tx_ref = $4
		WHERE vault_address = $1 AND request_id = $2 AND NOT executed AND NOT revoked
	`, vaultAddress, requestID, executedAt, txRef)
	return err
}

func (r *paymentRepo) MarkRevoked(ctx context.Context, vaultAddress string, requestID int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_requests SET
			revoked = TRUE,
			revoke_reason = $3
		WHERE vault_address = $1 AND request_id = $2 AND NOT executed AND NOT revoked
	`, vaultAddress, requestID, reason)
	return err
}
