// Package notify writes inbox notifications for domain events and serves the
// recipient's inbox. Emitting is additive only: it never touches complaints,
// comments, votes or counters.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/config"
	"campusvoice/backend/internal/localization"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/storage"
)

// Store is the slice of storage the emitter needs.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateNotifications(ctx context.Context, ns []*models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	PublishNotification(ctx context.Context, n *models.Notification) error
}

// Message describes a notification before it is localized.
type Message struct {
	Recipient  string
	Sender     string // empty for system notifications
	Type       models.NotificationType
	TargetType string
	TargetID   string
	TitleArgs  []any
	BodyArgs   []any
}

type Emitter struct {
	Storage   Store
	Localizer *localization.Localizer
	Lang      string
	Now       func() time.Time
}

func NewEmitter(s Store, l *localization.Localizer, lang string) *Emitter {
	if l == nil {
		l = localization.Default()
	}
	if lang == "" {
		lang = localization.FallbackLang
	}
	return &Emitter{Storage: s, Localizer: l, Lang: lang, Now: time.Now}
}

// Compose renders a Message into an unsaved notification.
func (e *Emitter) Compose(m Message) *models.Notification {
	key := "notification." + string(m.Type)
	n := &models.Notification{
		RecipientID: m.Recipient,
		Type:        m.Type,
		Title:       e.Localizer.Format(e.Lang, key+".title", m.TitleArgs...),
		Message:     e.Localizer.Format(e.Lang, key+".message", m.BodyArgs...),
		TargetType:  m.TargetType,
		TargetID:    m.TargetID,
	}
	if m.Sender != "" {
		sender := m.Sender
		n.SenderID = &sender
	}
	return n
}

func validate(n *models.Notification) error {
	if n == nil || n.RecipientID == "" {
		return apperr.InvalidInput("notification recipient is required")
	}
	if n.Type == "" {
		return apperr.InvalidInput("notification type is required")
	}
	if n.Title == "" {
		n.Title = string(n.Type)
	}
	return nil
}

// Emit persists one notification and pushes it to live subscribers.
func (e *Emitter) Emit(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if err := validate(n); err != nil {
		return nil, err
	}
	if err := e.Storage.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	e.publish(ctx, n)
	return n, nil
}

// EmitMany persists a batch in one insert. Either all are saved or none.
func (e *Emitter) EmitMany(ctx context.Context, ns []*models.Notification) ([]*models.Notification, error) {
	for _, n := range ns {
		if err := validate(n); err != nil {
			return nil, err
		}
	}
	if err := e.Storage.CreateNotifications(ctx, ns); err != nil {
		return nil, fmt.Errorf("create notifications: %w", err)
	}
	for _, n := range ns {
		e.publish(ctx, n)
	}
	return ns, nil
}

// Notify composes and emits m, logging instead of returning failures. Callers
// use it for side effects that must not fail the operation that caused them.
// Nobody is notified about their own actions.
func (e *Emitter) Notify(ctx context.Context, m Message) {
	if e == nil || m.Recipient == "" || m.Recipient == m.Sender {
		return
	}
	if _, err := e.Emit(ctx, e.Compose(m)); err != nil {
		log.Printf("ERROR: notification %s for %s not saved: %v", m.Type, m.Recipient, err)
	}
}

// NotifyMany is Notify for several recipients at once, saved in one batch.
func (e *Emitter) NotifyMany(ctx context.Context, ms ...Message) {
	if e == nil {
		return
	}
	var batch []*models.Notification
	for _, m := range ms {
		if m.Recipient == "" || m.Recipient == m.Sender {
			continue
		}
		batch = append(batch, e.Compose(m))
	}
	if len(batch) == 0 {
		return
	}
	if _, err := e.EmitMany(ctx, batch); err != nil {
		log.Printf("ERROR: %d notifications not saved: %v", len(batch), err)
	}
}

func (e *Emitter) publish(ctx context.Context, n *models.Notification) {
	if err := e.Storage.PublishNotification(ctx, n); err != nil {
		log.Printf("WARNING: publish notification %s: %v", n.ID, err)
	}
}

// Page is one window of a recipient's inbox.
type Page struct {
	Items []models.Notification `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

func (e *Emitter) List(ctx context.Context, recipientID string, unreadOnly bool, page, size int) (*Page, error) {
	offset, limit := config.PageWindow(page, size)
	items, total, err := e.Storage.ListNotifications(ctx, recipientID, unreadOnly, offset, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &Page{Items: items, Total: total, Page: offset/limit + 1, Limit: limit}, nil
}

func (e *Emitter) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return e.Storage.CountUnread(ctx, recipientID)
}

// MarkRead marks one notification read. Only its recipient may do so.
func (e *Emitter) MarkRead(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	n, err := e.Storage.GetNotification(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("notification %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if n.RecipientID != recipientID {
		return nil, apperr.Forbidden("notification belongs to another user")
	}
	if n.IsRead {
		return n, nil
	}

	now := e.Now()
	if err := e.Storage.MarkNotificationRead(ctx, id, now); err != nil {
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &now
	return n, nil
}

func (e *Emitter) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return e.Storage.MarkAllNotificationsRead(ctx, recipientID, e.Now())
}
