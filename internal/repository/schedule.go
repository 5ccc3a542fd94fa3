package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type ScheduleRepository interface {
	FindByID(ctx context.Context, id string) (*model.Schedule, error)
	FindByUser(ctx context.Context, userAddress string) ([]model.Schedule, error)
	// FindDue returns unpaused schedules whose next due date has passed,
	// oldest first so one stuck user cannot starve the rest.
	FindDue(ctx context.Context, now time.Time) ([]model.Schedule, error)
	Create(ctx context.Context, params model.CreateScheduleParams) (*model.Schedule, error)
	Advance(ctx context.Context, id string, nextDue, executedAt time.Time) error
	// RecordFailure increments the failure counter and returns its new value.
	RecordFailure(ctx context.Context, id string, errMsg string) (int, error)
	SetPaused(ctx context.Context, id string, paused bool) error
	Delete(ctx context.Context, id string) error
}

type scheduleRepo struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) FindByID(ctx context.Context, id string) (*model.Schedule, error) {
	var s model.Schedule
	err := r.db.GetContext(ctx, &s, `
		SELECT * FROM schedules WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepo) FindByUser(ctx context.Context, userAddress string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.SelectContext(ctx, &schedules, `
		SELECT * FROM schedules
		WHERE user_address = $1
		ORDER BY created_at DESC
	`, userAddress)
	return schedules, err
}

func (r *scheduleRepo) FindDue(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.SelectContext(ctx, &schedules, `
		SELECT * FROM schedules
		WHERE next_due <= $1 AND NOT paused
		ORDER BY next_due
	`, now)
	return schedules, err
}

func (r *scheduleRepo) Create(ctx context.Context, params model.CreateScheduleParams) (*model.Schedule, error) {
	var s model.Schedule
	err := r.db.GetContext(ctx, &s, `
		INSERT INTO schedules (id, user_address, kind, destination, destination_name, savings_plan_id, amount_wei, frequency, next_due)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, params.ID, params.UserAddress, params.Kind, params.Destination, params.DestinationName,
		params.SavingsPlanID, params.AmountWei, params.Frequency, params.NextDue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepo) Advance(ctx context.Context, id string, nextDue, executedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET
			next_due = $2,
			last_executed = $3,
			execution_count = execution_count + 1,
			failure_count = 0,
			last_error = '',
			updated_at = NOW()
		WHERE id = $1
	`, id, nextDue, executedAt)
	return err
}

func (r *scheduleRepo) RecordFailure(ctx context.Context, id string, errMsg string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		UPDATE schedules SET
			failure_count = failure_count + 1,
			last_error = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING failure_count
	`, id, errMsg)
	return count, err
}

func (r *scheduleRepo) SetPaused(ctx context.Context, id string, paused bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET
			paused = $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, paused)
	return err
}

func (r *scheduleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM schedules WHERE id = $1
	`, id)
	return err
}
