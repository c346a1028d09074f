package notify_test

import (
	"context"
	"time"

	"campusvoice/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockStore) CreateNotifications(ctx context.Context, ns []*models.Notification) error {
	args := m.Called(ns)
	return args.Error(0)
}

func (m *MockStore) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	args := m.Called(id)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

func (m *MockStore) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]models.Notification, int64, error) {
	args := m.Called(recipientID, unreadOnly, offset, limit)
	list, _ := args.Get(0).([]models.Notification)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) MarkNotificationRead(ctx context.Context, id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockStore) MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	args := m.Called(recipientID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) PublishNotification(ctx context.Context, n *models.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}
