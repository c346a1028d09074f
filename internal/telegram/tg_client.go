package telegram

import (
	"context"
	"fmt"
	"log"

	"campusvoice/backend/internal/localization"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/reconcile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI used for outgoing messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Alerter posts complaint events to the administrators' chat. Alerts are
// queued and sent by a single write pump so request handlers never wait on
// the Telegram API.
type Alerter struct {
	Bot       Sender
	ChatID    int64
	Localizer *localization.Localizer
	Lang      string
	Send      chan string
}

func NewAlerter(bot Sender, chatID int64, l *localization.Localizer, lang string) *Alerter {
	if l == nil {
		l = localization.Default()
	}
	return &Alerter{
		Bot:       bot,
		ChatID:    chatID,
		Localizer: l,
		Lang:      lang,
		Send:      make(chan string, 64),
	}
}

func (a *Alerter) ComplaintCreated(ctx context.Context, c *models.Complaint, author *models.User) {
	name := c.SubmittedByID
	if author != nil {
		name = author.Name
	}
	a.enqueue(a.Localizer.Format(a.Lang, "alert.complaint_created", escapeHTML(c.Title), escapeHTML(c.Category), escapeHTML(name)))
}

func (a *Alerter) StatusChanged(ctx context.Context, c *models.Complaint, from models.ComplaintStatus) {
	a.enqueue(a.Localizer.Format(a.Lang, "alert.status_changed", escapeHTML(c.Title), from, c.Status))
}

func (a *Alerter) ReconcileFinished(ctx context.Context, r reconcile.Report) {
	a.enqueue(a.Localizer.Format(a.Lang, "alert.reconcile_finished", r.Users, r.Targets, r.Corrected))
}

// enqueue never blocks; when the queue is full the alert is dropped.
func (a *Alerter) enqueue(text string) {
	select {
	case a.Send <- text:
	default:
		log.Printf("WARNING: telegram alert queue full, dropping alert")
	}
}

// Run is the write pump. It returns when ctx is done.
func (a *Alerter) Run(ctx context.Context) {
	defer log.Println("INFO: telegram alert pump stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case text := <-a.Send:
			if err := a.deliver(text); err != nil {
				log.Printf("ERROR: failed to send Telegram alert: %v", err)
			}
		}
	}
}

func (a *Alerter) deliver(text string) error {
	if a.ChatID == 0 {
		return fmt.Errorf("admin chat id is not configured")
	}
	msg := tgbotapi.NewMessage(a.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := a.Bot.Send(msg)
	return err
}

// Nop drops every alert. It is used when no bot token is configured.
type Nop struct{}

func (Nop) ComplaintCreated(context.Context, *models.Complaint, *models.User)     {}
func (Nop) StatusChanged(context.Context, *models.Complaint, models.ComplaintStatus) {}
func (Nop) ReconcileFinished(context.Context, reconcile.Report)                    {}

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
