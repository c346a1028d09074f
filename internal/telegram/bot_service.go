// Package telegram handles the integration with the Telegram Bot API.
// The bot is an administrators' channel: it posts alerts about new complaints
// and status changes to one chat and answers a few commands there.
package telegram

import (
	"context"
	"log"

	"campusvoice/backend/internal/localization"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotService owns the Bot API connection, the alert pump and the command loop.
type BotService struct {
	BotAPI      *tgbotapi.BotAPI
	Alerter     *Alerter
	Storage     CommandStorage
	AdminChatID int64
}

// NewBotService creates a new BotService instance.
func NewBotService(token string, adminChatID int64, s CommandStorage, l *localization.Localizer, lang string) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBotService(bot, adminChatID, s, l, lang), nil
}

func newBotService(bot *tgbotapi.BotAPI, adminChatID int64, s CommandStorage, l *localization.Localizer, lang string) *BotService {
	bot.Debug = false
	log.Printf("INFO: authorized on Telegram account %s", bot.Self.UserName)
	return &BotService{
		BotAPI:      bot,
		Alerter:     NewAlerter(bot, adminChatID, l, lang),
		Storage:     s,
		AdminChatID: adminChatID,
	}
}

// Run starts the alert pump and processes updates until ctx is done.
func (s *BotService) Run(ctx context.Context) {
	go s.Alerter.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			HandleCommand(ctx, &update, s.Storage, s.BotAPI, s.AdminChatID)
		}
	}
}
