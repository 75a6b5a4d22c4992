package rich

import (
	"context"
	"errors"
	"log/slog"

	"assistbot/pkg/logger"
)

// OutboundObserver records delivery outcomes.
type OutboundObserver interface {
	ObserveOutbound(kind string, status string)
}

// Messenger normalizes messages and delivers them best-effort.
type Messenger struct {
	transport Transport
	limits    Limits
	log       *slog.Logger
	observer  OutboundObserver
}

// Option configures a Messenger.
type Option func(*Messenger)

func WithLimits(limits Limits) Option {
	return func(m *Messenger) {
		m.limits = limits
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Messenger) {
		if log != nil {
			m.log = log.With("component", "rich.messenger")
		}
	}
}

func WithObserver(observer OutboundObserver) Option {
	return func(m *Messenger) {
		m.observer = observer
	}
}

func NewMessenger(transport Transport, opts ...Option) *Messenger {
	m := &Messenger{
		transport: transport,
		limits:    DefaultLimits(),
		log:       slog.Default().With("component", "rich.messenger"),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Send validates and normalizes msg, then hands it to the transport.
//
// Only ErrInvalidMessage is returned. Transport failures are logged and
// counted, and Send reports success to the caller.
func (m *Messenger) Send(ctx context.Context, to string, msg Message) error {
	normalized, err := Normalize(msg, m.limits)
	if err != nil {
		kind := kindOf(msg)
		m.observe(kind, "rejected")
		m.log.Warn("Rejected outbound message", "to", to, "kind", kind, "error", err)
		return err
	}
	if m.transport == nil {
		m.observe(string(normalized.Kind()), "failed")
		m.log.Error("No transport configured", "to", to, "kind", normalized.Kind())
		return nil
	}

	switch n := normalized.(type) {
	case Text:
		err = m.transport.SendText(ctx, to, n.Body)
	case ButtonPrompt:
		err = m.transport.SendButtons(ctx, to, n)
	case ListPrompt:
		err = m.transport.SendList(ctx, to, n)
	}

	kind := string(normalized.Kind())
	if err != nil {
		m.observe(kind, "failed")
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		m.log.Log(ctx, level, "Failed to deliver outbound message", "to", to, "kind", kind, "error", err)
		return nil
	}

	m.observe(kind, "sent")
	m.log.Debug("Sent outbound message", "to", to, "kind", kind, "preview", logger.Preview(bodyOf(normalized)))
	return nil
}

func (m *Messenger) observe(kind string, status string) {
	if m.observer == nil {
		return
	}
	m.observer.ObserveOutbound(kind, status)
}

func kindOf(msg Message) string {
	switch n := msg.(type) {
	case Text, ButtonPrompt, ListPrompt:
		return string(n.Kind())
	case *Text:
		return string(KindText)
	case *ButtonPrompt:
		return string(KindButtons)
	case *ListPrompt:
		return string(KindList)
	default:
		return "unknown"
	}
}

func bodyOf(msg Message) string {
	switch n := msg.(type) {
	case Text:
		return n.Body
	case ButtonPrompt:
		return n.Body
	case ListPrompt:
		return n.Body
	default:
		return ""
	}
}
