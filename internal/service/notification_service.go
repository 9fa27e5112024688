package service

import (
	"context"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/observability"

	"github.com/google/uuid"
)

// Publisher pushes an encoded notification to a user's live connections.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
}

// NotificationService stores feed entries and pushes them to open sockets.
type NotificationService struct {
	store     notifications.Store
	publisher Publisher
	now       func() time.Time
}

// NewNotificationService returns a NotificationService. publisher may be nil
// when push delivery is disabled.
func NewNotificationService(store notifications.Store, publisher Publisher) *NotificationService {
	return &NotificationService{store: store, publisher: publisher, now: time.Now}
}

// Push stores a notification for userID and publishes it. A publish failure
// is logged only; the entry stays in the feed for polling.
func (s *NotificationService) Push(ctx context.Context, userID uint, typ models.NotificationType, message string, relatedID uint) (*models.Notification, error) {
	n := &models.Notification{
		ID:              uuid.NewString(),
		UserID:          userID,
		Type:            typ,
		Message:         message,
		CreatedAt:       s.now().UTC(),
		RelatedEntityID: relatedID,
	}
	if err := s.store.Add(ctx, n); err != nil {
		observability.NotificationsTotal.WithLabelValues(string(typ), "store_failed").Inc()
		return nil, models.NewInternalError(err)
	}

	result := "stored"
	if s.publisher != nil {
		payload, err := notifications.Encode(*n)
		if err == nil {
			err = s.publisher.PublishUser(ctx, userID, payload)
		}
		if err != nil {
			result = "publish_failed"
			middleware.Logger.WarnContext(ctx, "notification publish failed", "user_id", userID, "error", err)
		} else {
			result = "published"
		}
	}
	observability.NotificationsTotal.WithLabelValues(string(typ), result).Inc()
	return n, nil
}

// List returns the user's feed, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	feed, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return feed, nil
}

// Unread returns unread entries, newest first.
func (s *NotificationService) Unread(ctx context.Context, userID uint) ([]models.Notification, error) {
	feed, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return notifications.Unread(feed), nil
}

// MarkRead marks one entry as read. Marking twice is not an error.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, id string) error {
	if err := s.store.MarkRead(ctx, userID, id); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}

// MarkAllRead marks the whole feed as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	if err := s.store.MarkAllRead(ctx, userID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
