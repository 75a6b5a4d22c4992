package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"assistbot/pkg/bus"
	"assistbot/pkg/channel"
	"assistbot/pkg/config"
	"assistbot/pkg/logger"
	"assistbot/pkg/rich"
)

const channelName = "telegram"

// Callback data prefixes that tell button presses from list selections.
const (
	callbackButton = "b|"
	callbackList   = "l|"
)

// Adapter bridges Telegram private chats into the dispatch engine.
type Adapter struct {
	cfg       config.TelegramConfig
	bot       *telego.Bot
	transport *Transport
	allowFrom map[string]struct{}
	log       *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return &Adapter{
		cfg:       cfg,
		bot:       bot,
		transport: NewTransport(bot),
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in events and logs.
func (a *Adapter) Name() string {
	return channelName
}

func (a *Adapter) Transport() rich.Transport {
	return a.transport
}

// Run starts Telegram long polling and forwards updates to handler.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			if query := update.CallbackQuery; query != nil {
				if err := a.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(query.ID)); err != nil {
					a.log.Debug("Failed to answer callback query", "error", err)
				}
			}

			event, ok := eventFromUpdate(update)
			if !ok {
				continue
			}
			if !a.senderAllowed(event.SenderID) {
				a.log.Debug("Ignoring message from unauthorized sender", "sender_id", event.SenderID)
				continue
			}

			a.log.Info("Received message", "sender_id", event.SenderID, "kind", event.Kind, "content", logger.Preview(event.Body+event.SelectionID))
			a.sendTyping(ctx, event.SenderID)
			handler(ctx, event)
		}
	}
}

// eventFromUpdate maps private chat text messages and inline keyboard presses.
func eventFromUpdate(update telego.Update) (bus.InboundEvent, bool) {
	var event bus.InboundEvent

	switch {
	case update.Message != nil:
		message := update.Message
		if message.From == nil || message.Chat.Type != telego.ChatTypePrivate {
			return bus.InboundEvent{}, false
		}
		content := strings.TrimSpace(message.Text)
		if content == "" {
			return bus.InboundEvent{}, false
		}
		event = bus.TextEvent(channelName, strconv.FormatInt(message.From.ID, 10), content)
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		kind, id, ok := parseCallbackData(query.Data)
		if !ok {
			return bus.InboundEvent{}, false
		}
		event = bus.InteractiveEvent(channelName, strconv.FormatInt(query.From.ID, 10), kind, id)
	default:
		return bus.InboundEvent{}, false
	}

	if !event.Valid() {
		return bus.InboundEvent{}, false
	}
	event.Metadata = map[string]string{"update_id": strconv.Itoa(update.UpdateID)}

	return event, true
}

func parseCallbackData(data string) (bus.ReplyKind, string, bool) {
	if id, ok := strings.CutPrefix(data, callbackButton); ok && id != "" {
		return bus.ReplyButton, id, true
	}
	if id, ok := strings.CutPrefix(data, callbackList); ok && id != "" {
		return bus.ReplyList, id, true
	}

	return "", "", false
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

func (a *Adapter) sendTyping(ctx context.Context, senderID string) {
	chatID, err := strconv.ParseInt(senderID, 10, 64)
	if err != nil {
		return
	}

	if err := a.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)); err != nil && ctx.Err() == nil {
		a.log.Debug("Failed to send typing indicator", "sender_id", senderID, "error", err)
	}
}
