package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramSink delivers messages through the Bot API.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewTelegramSink(api *tgbotapi.BotAPI, logger *zap.Logger) *TelegramSink {
	return &TelegramSink{api: api, logger: logger}
}

func (s *TelegramSink) Send(ctx context.Context, msg Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	out := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if msg.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(msg.Keyboard) > 0 {
		out.ReplyMarkup = inlineKeyboard(msg.Keyboard)
	}

	sent, err := s.api.Send(out)
	if err != nil {
		return 0, fmt.Errorf("send to chat %d: %w", msg.ChatID, err)
	}
	return sent.MessageID, nil
}

func (s *TelegramSink) Edit(ctx context.Context, messageID int, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var edit tgbotapi.EditMessageTextConfig
	if len(msg.Keyboard) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(msg.ChatID, messageID, msg.Text, inlineKeyboard(msg.Keyboard))
	} else {
		edit = tgbotapi.NewEditMessageText(msg.ChatID, messageID, msg.Text)
	}
	if msg.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}

	if _, err := s.api.Request(edit); err != nil {
		if IsNotModified(err) {
			return nil
		}
		return fmt.Errorf("edit message %d in chat %d: %w", messageID, msg.ChatID, err)
	}
	return nil
}

// IsNotModified reports the Bot API complaint about an edit that changes nothing.
func IsNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func inlineKeyboard(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
