// Package rich defines transport-agnostic outbound messages and the
// normalizing sender that hands them to a channel transport.
package rich

import "context"

// Kind tags the outbound message variants.
type Kind string

const (
	KindText    Kind = "text"
	KindButtons Kind = "buttons"
	KindList    Kind = "list"
)

// Message is one of Text, ButtonPrompt or ListPrompt.
type Message interface {
	Kind() Kind
}

// Text is a plain text reply.
type Text struct {
	Body string `json:"body"`
}

// Button is one quick-reply option.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ButtonPrompt is a body with up to three quick-reply buttons.
type ButtonPrompt struct {
	Body    string   `json:"body"`
	Buttons []Button `json:"buttons"`
	Header  string   `json:"header,omitempty"`
	Footer  string   `json:"footer,omitempty"`
}

// Row is one selectable entry of a list section.
type Row struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Section groups list rows under a title.
type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// ListPrompt is a body with a menu of sectioned rows behind an action label.
type ListPrompt struct {
	Body        string    `json:"body"`
	ButtonLabel string    `json:"button_label,omitempty"`
	Sections    []Section `json:"sections"`
	Header      string    `json:"header,omitempty"`
	Footer      string    `json:"footer,omitempty"`
}

func (Text) Kind() Kind         { return KindText }
func (ButtonPrompt) Kind() Kind { return KindButtons }
func (ListPrompt) Kind() Kind   { return KindList }

// Transport performs the network calls for one channel.
type Transport interface {
	SendText(ctx context.Context, to string, body string) error
	SendButtons(ctx context.Context, to string, prompt ButtonPrompt) error
	SendList(ctx context.Context, to string, prompt ListPrompt) error
}

// Sender is what handlers use to reply.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

// Rows returns all rows across sections in display order.
func (p ListPrompt) Rows() []Row {
	var rows []Row
	for _, section := range p.Sections {
		rows = append(rows, section.Rows...)
	}
	return rows
}
