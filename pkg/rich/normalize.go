package rich

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMessage marks a message that cannot be delivered in any form.
var ErrInvalidMessage = errors.New("invalid rich message")

// DefaultListButtonLabel is shown on the list action when none is given.
const DefaultListButtonLabel = "Voir les options"

// Limits are the display caps applied before delivery, counted in runes.
type Limits struct {
	MaxButtons     int
	ButtonLabel    int
	ListButton     int
	SectionTitle   int
	RowLabel       int
	RowDescription int
	Header         int
	Footer         int
}

// DefaultLimits matches the WhatsApp interactive message caps.
func DefaultLimits() Limits {
	return Limits{
		MaxButtons:     3,
		ButtonLabel:    20,
		ListButton:     20,
		SectionTitle:   24,
		RowLabel:       24,
		RowDescription: 72,
		Header:         60,
		Footer:         60,
	}
}

// Normalize validates msg and truncates its display fields to limits.
func Normalize(msg Message, limits Limits) (Message, error) {
	switch m := msg.(type) {
	case Text:
		return normalizeText(m)
	case *Text:
		if m == nil {
			return nil, fmt.Errorf("%w: nil text", ErrInvalidMessage)
		}
		return normalizeText(*m)
	case ButtonPrompt:
		return normalizeButtons(m, limits)
	case *ButtonPrompt:
		if m == nil {
			return nil, fmt.Errorf("%w: nil button prompt", ErrInvalidMessage)
		}
		return normalizeButtons(*m, limits)
	case ListPrompt:
		return normalizeList(m, limits)
	case *ListPrompt:
		if m == nil {
			return nil, fmt.Errorf("%w: nil list prompt", ErrInvalidMessage)
		}
		return normalizeList(*m, limits)
	default:
		return nil, fmt.Errorf("%w: unsupported message type %T", ErrInvalidMessage, msg)
	}
}

func normalizeText(m Text) (Message, error) {
	if strings.TrimSpace(m.Body) == "" {
		return nil, fmt.Errorf("%w: empty text body", ErrInvalidMessage)
	}

	return Text{Body: m.Body}, nil
}

func normalizeButtons(m ButtonPrompt, limits Limits) (Message, error) {
	if strings.TrimSpace(m.Body) == "" {
		return nil, fmt.Errorf("%w: empty button prompt body", ErrInvalidMessage)
	}
	if len(m.Buttons) == 0 {
		return nil, fmt.Errorf("%w: button prompt without buttons", ErrInvalidMessage)
	}
	if limits.MaxButtons > 0 && len(m.Buttons) > limits.MaxButtons {
		return nil, fmt.Errorf("%w: %d buttons exceeds cap of %d", ErrInvalidMessage, len(m.Buttons), limits.MaxButtons)
	}

	seen := make(map[string]struct{}, len(m.Buttons))
	buttons := make([]Button, 0, len(m.Buttons))
	for _, button := range m.Buttons {
		id := strings.TrimSpace(button.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: button without id", ErrInvalidMessage)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate button id %q", ErrInvalidMessage, id)
		}
		seen[id] = struct{}{}

		label := Truncate(button.Label, limits.ButtonLabel)
		if label == "" {
			label = Truncate(id, limits.ButtonLabel)
		}
		buttons = append(buttons, Button{ID: id, Label: label})
	}

	return ButtonPrompt{
		Body:    m.Body,
		Buttons: buttons,
		Header:  Truncate(m.Header, limits.Header),
		Footer:  Truncate(m.Footer, limits.Footer),
	}, nil
}

func normalizeList(m ListPrompt, limits Limits) (Message, error) {
	if strings.TrimSpace(m.Body) == "" {
		return nil, fmt.Errorf("%w: empty list prompt body", ErrInvalidMessage)
	}

	seen := make(map[string]struct{})
	sections := make([]Section, 0, len(m.Sections))
	for _, section := range m.Sections {
		rows := make([]Row, 0, len(section.Rows))
		for _, row := range section.Rows {
			id := strings.TrimSpace(row.ID)
			if id == "" {
				return nil, fmt.Errorf("%w: list row without id", ErrInvalidMessage)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: duplicate list row id %q", ErrInvalidMessage, id)
			}
			seen[id] = struct{}{}

			label := Truncate(row.Label, limits.RowLabel)
			if label == "" {
				label = Truncate(id, limits.RowLabel)
			}
			rows = append(rows, Row{
				ID:          id,
				Label:       label,
				Description: Truncate(row.Description, limits.RowDescription),
			})
		}
		if len(rows) == 0 {
			continue
		}

		sections = append(sections, Section{Title: Truncate(section.Title, limits.SectionTitle), Rows: rows})
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: list prompt without rows", ErrInvalidMessage)
	}

	buttonLabel := Truncate(m.ButtonLabel, limits.ListButton)
	if buttonLabel == "" {
		buttonLabel = Truncate(DefaultListButtonLabel, limits.ListButton)
	}

	return ListPrompt{
		Body:        m.Body,
		ButtonLabel: buttonLabel,
		Sections:    sections,
		Header:      Truncate(m.Header, limits.Header),
		Footer:      Truncate(m.Footer, limits.Footer),
	}, nil
}

// Truncate trims s and cuts it to at most limit runes. A limit of zero or
// less leaves the trimmed text unchanged.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
