package gateway

import (
	"context"
	"log/slog"

	"assistbot/pkg/bus"
)

func observeDispatchEvents(ctx context.Context, messageBus *bus.MessageBus) {
	log := slog.Default().With("component", "bus.events")
	events, unsubscribe := messageBus.SubscribeEvents(ctx, 64)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			logEvent(log, event)
		}
	}
}

func logEvent(log *slog.Logger, event bus.Event) {
	attrs := []any{
		"event_type", event.Type,
		"request_id", event.RequestID,
		"channel", event.Channel,
		"sender_id", event.SenderID,
		"timestamp", event.At.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
	if len(event.Payload) > 0 {
		attrs = append(attrs, "payload", event.Payload)
	}

	switch event.Type {
	case bus.EventDispatchFailed:
		log.Error("Dispatch event", append(attrs, "error", event.Error)...)
	case bus.EventDispatchReceived:
		log.Debug("Dispatch event", attrs...)
	case bus.EventDispatchCompleted:
		log.Info("Dispatch event", attrs...)
	default:
		log.Debug("Dispatch event", attrs...)
	}
}
