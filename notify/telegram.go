// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram posts notifications to the organisers' chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects to the Bot API with the given token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID)
}

// NewTelegramWithEndpoint is NewTelegram against a custom API endpoint,
// formatted like tgbotapi.APIEndpoint.
func NewTelegramWithEndpoint(token, endpoint string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	zap.L().Info("telegram notifier ready", zap.String("bot", bot.Self.UserName))
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Send(ctx context.Context, name string, to []Recipient, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mail, err := Build(name, data)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(mail.Subject)
	b.WriteString("\n\n")
	b.WriteString(mail.Body)
	if len(to) > 0 {
		names := make([]string, len(to))
		for i, r := range to {
			names[i] = r.String()
		}
		b.WriteString("\n\nTo: ")
		b.WriteString(strings.Join(names, ", "))
	}

	msg := tgbotapi.NewMessage(t.chatID, b.String())
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}
