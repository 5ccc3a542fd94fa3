package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
	"github.com/ismail-169/sentinel-finance-sub000/internal/sse"
)

// Notifier is the outbound notification boundary. The core emits structured
// events; delivery and rendering happen elsewhere.
type Notifier interface {
	Notify(ctx context.Context, userAddress string, kind model.NotificationKind, message string, txRef *string)
}

type NotificationService struct {
	repo   repository.NotificationRepository
	broker *sse.Broker
}

func NewNotificationService(repo repository.NotificationRepository, broker *sse.Broker) *NotificationService {
	return &NotificationService{repo: repo, broker: broker}
}

// Notify persists the notification and broadcasts it on the user's event
// stream. Failures are logged, never propagated: a lost notification must
// not fail the operation that produced it.
func (s *NotificationService) Notify(ctx context.Context, userAddress string, kind model.NotificationKind, message string, txRef *string) {
	n, err := s.repo.Create(ctx, model.CreateNotificationParams{
		UserAddress: model.NormalizeAddress(userAddress),
		Kind:        kind,
		Message:     message,
		TxRef:       txRef,
	})
	if err != nil {
		log.Error().Err(err).Str("user", userAddress).Str("kind", string(kind)).Msg("failed to persist notification")
		return
	}

	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, n.UserAddress, sse.Event{Type: kind, Data: n.ToEventData()}); err != nil {
		log.Warn().Err(err).Str("user", userAddress).Msg("failed to publish notification event")
	}
}

func (s *NotificationService) List(ctx context.Context, userAddress string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.FindByUser(ctx, model.NormalizeAddress(userAddress), unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id int64) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userAddress string) (int64, error) {
	return s.repo.MarkAllRead(ctx, model.NormalizeAddress(userAddress))
}
