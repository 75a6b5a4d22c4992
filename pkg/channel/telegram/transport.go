package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"assistbot/pkg/rich"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Transport renders rich messages as Telegram messages with inline keyboards.
type Transport struct {
	bot messageSender
}

func NewTransport(bot messageSender) *Transport {
	return &Transport{bot: bot}
}

func (t *Transport) SendText(ctx context.Context, to string, body string) error {
	return t.send(ctx, to, body, nil)
}

func (t *Transport) SendButtons(ctx context.Context, to string, prompt rich.ButtonPrompt) error {
	row := make([]telego.InlineKeyboardButton, 0, len(prompt.Buttons))
	for _, button := range prompt.Buttons {
		row = append(row, tu.InlineKeyboardButton(button.Label).WithCallbackData(callbackButton+button.ID))
	}

	return t.send(ctx, to, compose(prompt.Header, prompt.Body, prompt.Footer), tu.InlineKeyboard(row))
}

func (t *Transport) SendList(ctx context.Context, to string, prompt rich.ListPrompt) error {
	rows := make([][]telego.InlineKeyboardButton, 0)
	for _, row := range prompt.Rows() {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(row.Label).WithCallbackData(callbackList+row.ID),
		))
	}

	return t.send(ctx, to, compose(prompt.Header, prompt.Body, prompt.Footer), tu.InlineKeyboard(rows...))
}

func (t *Transport) send(ctx context.Context, to string, text string, keyboard *telego.InlineKeyboardMarkup) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}

	params := tu.Message(tu.ID(chatID), text)
	if keyboard != nil {
		params = params.WithReplyMarkup(keyboard)
	}

	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

// compose joins the optional header and footer around the body.
func compose(header string, body string, footer string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{header, body, footer} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, "\n\n")
}
