package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// CommandStorage defines the storage methods required by the admin chat commands.
type CommandStorage interface {
	ListComplaints(ctx context.Context, filter storage.ComplaintFilter) ([]models.Complaint, int64, error)
}

const pendingPreview = 5

// HandleCommand answers /pending and /help in the admin chat. Messages from
// any other chat are ignored.
func HandleCommand(ctx context.Context, update *tgbotapi.Update, s CommandStorage, bot Sender, adminChatID int64) {
	if update.Message == nil || update.Message.Chat.ID != adminChatID {
		return
	}

	var responseText string
	switch update.Message.Command() {
	case "pending":
		responseText = pendingSummary(ctx, s)
	case "help", "start":
		responseText = "/pending - complaints waiting for triage"
	default:
		return
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, responseText)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := bot.Send(msg); err != nil {
		log.Printf("ERROR: sending command reply: %v", err)
	}
}

func pendingSummary(ctx context.Context, s CommandStorage) string {
	list, total, err := s.ListComplaints(ctx, storage.ComplaintFilter{
		Status: models.StatusPending,
		Limit:  pendingPreview,
	})
	if err != nil {
		log.Printf("ERROR: listing pending complaints: %v", err)
		return "Failed to load pending complaints."
	}
	if total == 0 {
		return "No pending complaints."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%d pending</b>", total)
	for _, c := range list {
		fmt.Fprintf(&b, "\n• %s (%s)", escapeHTML(c.Title), escapeHTML(c.Category))
	}
	return b.String()
}
