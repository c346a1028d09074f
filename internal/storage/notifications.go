package storage

import (
	"context"
	"encoding/json"
	"time"

	"campusvoice/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// NotificationChannelPrefix is the Redis Pub/Sub channel prefix; the full
// channel is prefix + recipient id.
const NotificationChannelPrefix = "notifications:"

func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db(ctx).Create(n).Error
}

// CreateNotifications inserts a batch in one statement.
func (s *Service) CreateNotifications(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return s.db(ctx).Create(ns).Error
}

func (s *Service) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.db(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (s *Service) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]models.Notification, int64, error) {
	q := s.db(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Notification
	err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (s *Service) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := s.db(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string, at time.Time) error {
	return affected(s.db(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}))
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	res := s.db(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

// PublishNotification публікує сповіщення в Redis Pub/Sub для живої доставки.
func (s *Service) PublishNotification(ctx context.Context, n *models.Notification) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, NotificationChannelPrefix+n.RecipientID, payload).Err()
}

// SubscribeNotifications listens on every recipient channel.
func (s *Service) SubscribeNotifications(ctx context.Context) *redis.PubSub {
	return s.Redis.PSubscribe(ctx, NotificationChannelPrefix+"*")
}
