package chat

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"assistbot/pkg/bus"
	"assistbot/pkg/rich"
)

// ChannelName identifies the local simulator in events and state keys.
const ChannelName = "console"

// Console is a rich.Transport that buffers replies for the terminal UI.
type Console struct {
	mu      sync.Mutex
	pending []rich.Message
}

func NewConsole() *Console {
	return &Console{}
}

func (c *Console) SendText(_ context.Context, _ string, body string) error {
	c.push(rich.Text{Body: body})
	return nil
}

func (c *Console) SendButtons(_ context.Context, _ string, prompt rich.ButtonPrompt) error {
	c.push(prompt)
	return nil
}

func (c *Console) SendList(_ context.Context, _ string, prompt rich.ListPrompt) error {
	c.push(prompt)
	return nil
}

func (c *Console) push(msg rich.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, msg)
}

// Drain returns and clears the buffered replies.
func (c *Console) Drain() []rich.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.pending
	c.pending = nil
	return out
}

// option is one selectable entry of the most recent prompt.
type option struct {
	kind  bus.ReplyKind
	id    string
	label string
}

// optionsOf lists the selectable entries of msg in display order.
func optionsOf(msg rich.Message) []option {
	switch typed := msg.(type) {
	case rich.ButtonPrompt:
		out := make([]option, 0, len(typed.Buttons))
		for _, button := range typed.Buttons {
			out = append(out, option{kind: bus.ReplyButton, id: button.ID, label: button.Label})
		}
		return out
	case rich.ListPrompt:
		rows := typed.Rows()
		out := make([]option, 0, len(rows))
		for _, row := range rows {
			out = append(out, option{kind: bus.ReplyList, id: row.ID, label: row.Label})
		}
		return out
	default:
		return nil
	}
}

// parseSelection reads "/N" into a 1-based option index.
func parseSelection(input string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(input), "/")
	if !ok {
		return 0, false
	}

	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}

	return n, true
}
