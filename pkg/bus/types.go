package bus

import "strings"

// EventKind separates free text from an interactive reply.
type EventKind string

const (
	KindText        EventKind = "text"
	KindInteractive EventKind = "interactive"
)

// ReplyKind names which interactive control produced a selection.
type ReplyKind string

const (
	ReplyButton ReplyKind = "button_reply"
	ReplyList   ReplyKind = "list_reply"
)

// InboundEvent is one accepted user message from a channel.
//
// Text events carry Body; interactive events carry ReplyKind and SelectionID.
type InboundEvent struct {
	Channel     string            `json:"channel"`
	SenderID    string            `json:"sender_id"`
	Kind        EventKind         `json:"kind"`
	Body        string            `json:"body,omitempty"`
	ReplyKind   ReplyKind         `json:"reply_kind,omitempty"`
	SelectionID string            `json:"selection_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func TextEvent(channel string, senderID string, body string) InboundEvent {
	return InboundEvent{
		Channel:  channel,
		SenderID: senderID,
		Kind:     KindText,
		Body:     body,
	}
}

func InteractiveEvent(channel string, senderID string, kind ReplyKind, selectionID string) InboundEvent {
	return InboundEvent{
		Channel:     channel,
		SenderID:    senderID,
		Kind:        KindInteractive,
		ReplyKind:   kind,
		SelectionID: selectionID,
	}
}

// SessionKey scopes per-sender state to the channel the sender wrote from.
func (e InboundEvent) SessionKey() string {
	channel := strings.TrimSpace(e.Channel)
	sender := strings.TrimSpace(e.SenderID)
	if channel == "" {
		return sender
	}

	return channel + ":" + sender
}

// Valid reports whether the event carries the fields its kind requires.
func (e InboundEvent) Valid() bool {
	if strings.TrimSpace(e.SenderID) == "" {
		return false
	}

	switch e.Kind {
	case KindText:
		return true
	case KindInteractive:
		return (e.ReplyKind == ReplyButton || e.ReplyKind == ReplyList) && strings.TrimSpace(e.SelectionID) != ""
	default:
		return false
	}
}
