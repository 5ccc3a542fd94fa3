package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, params model.CreateNotificationParams) (*model.Notification, error)
	FindByUser(ctx context.Context, userAddress string, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userAddress string) (int64, error)
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

type notificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, params model.CreateNotificationParams) (*model.Notification, error) {
	var n model.Notification
	err := r.db.GetContext(ctx, &n, `
		INSERT INTO notifications (user_address, kind, message, tx_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.UserAddress, params.Kind, params.Message, params.TxRef)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) FindByUser(ctx context.Context, userAddress string, unreadOnly bool, limit int) ([]model.Notification, error) {
	var notifications []model.Notification
	query := `
		SELECT * FROM notifications
		WHERE user_address = $1
	`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	err := r.db.SelectContext(ctx, &notifications, query, userAddress, limit)
	return notifications, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1
	`, id)
	return err
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userAddress string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE user_address = $1 AND NOT is_read
	`, userAddress)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *notificationRepo) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE is_read AND created_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
