package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type ExecutionLogRepository interface {
	Create(ctx context.Context, params model.CreateExecutionRecordParams) (*model.ExecutionRecord, error)
	FindByUser(ctx context.Context, userAddress string, limit int) ([]model.ExecutionRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type executionLogRepo struct {
	db *sqlx.DB
}

func NewExecutionLogRepository(db *sqlx.DB) ExecutionLogRepository {
	return &executionLogRepo{db: db}
}

func (r *executionLogRepo) Create(ctx context.Context, params model.CreateExecutionRecordParams) (*model.ExecutionRecord, error) {
	var rec model.ExecutionRecord
	err := r.db.GetContext(ctx, &rec, `
		INSERT INTO execution_log (schedule_id, savings_plan_id, user_address, execution_type, amount_wei, destination, tx_ref, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, params.ScheduleID, params.SavingsPlanID, params.UserAddress, params.ExecutionType,
		params.AmountWei, params.Destination, params.TxRef, params.Status, params.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *executionLogRepo) FindByUser(ctx context.Context, userAddress string, limit int) ([]model.ExecutionRecord, error) {
	var records []model.ExecutionRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM execution_log
		WHERE user_address = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`, userAddress, limit)
	return records, err
}

func (r *executionLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM execution_log WHERE executed_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
