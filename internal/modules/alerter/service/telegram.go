package service

import (
	"context"
	"fmt"

	"expert_advisor/internal/models"
	"expert_advisor/internal/modules/config"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram — пассивный нотифайер, дублирует алерты в чат.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	if cfg.Telegram.Token == "" {
		return &Telegram{}, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: cfg.Telegram.ChatID,
	}, nil
}

func (t *Telegram) send(msg string) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	_, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg))
	return err
}

func (t *Telegram) SendSignal(_ context.Context, sig *models.Signal) error {
	emoji := "🔴"
	if sig.Side == models.SideBuy {
		emoji = "🟢"
	}
	return t.send(fmt.Sprintf("%s [%s] SIGNAL %s @ %.4f\n%s",
		emoji, sig.Symbol, sig.Side, sig.Price, sig.Notes))
}

func (t *Telegram) SendOrder(_ context.Context, order models.Order) error {
	return t.send(fmt.Sprintf("✅ [%s] ORDER %s @ %.4f x %.4f",
		order.Symbol, order.Side, order.Price, order.Amount))
}
