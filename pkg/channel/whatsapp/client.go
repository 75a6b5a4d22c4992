package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"assistbot/pkg/config"
	"assistbot/pkg/rich"
)

const (
	defaultRequestTimeout = 15 * time.Second
	errorBodyLimit        = 4 << 10
)

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	log         *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(cfg config.WhatsAppConfig, opts ...ClientOption) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("channels.whatsapp.access_token is required")
	}
	phoneID := strings.TrimSpace(cfg.PhoneNumberID)
	if phoneID == "" {
		return nil, errors.New("channels.whatsapp.phone_number_id is required")
	}

	c := &Client{
		endpoint:    strings.TrimRight(cfg.GraphAPIBase, "/") + "/" + strings.Trim(cfg.APIVersion, "/") + "/" + phoneID + "/messages",
		accessToken: token,
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
		log:         slog.Default().With("component", "channel.whatsapp"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type outboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

type interactive struct {
	Type   string            `json:"type"`
	Header *interactiveTitle `json:"header,omitempty"`
	Body   interactiveText   `json:"body"`
	Footer *interactiveText  `json:"footer,omitempty"`
	Action interactiveAction `json:"action"`
}

type interactiveTitle struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type interactiveText struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Button   string        `json:"button,omitempty"`
	Buttons  []replyButton `json:"buttons,omitempty"`
	Sections []listSection `json:"sections,omitempty"`
}

type replyButton struct {
	Type  string     `json:"type"`
	Reply replyTitle `json:"reply"`
}

type replyTitle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []listRow `json:"rows"`
}

type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (c *Client) SendText(ctx context.Context, to string, body string) error {
	return c.post(ctx, outboundMessage{
		Type: "text",
		To:   to,
		Text: &textBody{Body: body},
	})
}

func (c *Client) SendButtons(ctx context.Context, to string, prompt rich.ButtonPrompt) error {
	buttons := make([]replyButton, 0, len(prompt.Buttons))
	for _, button := range prompt.Buttons {
		buttons = append(buttons, replyButton{
			Type:  "reply",
			Reply: replyTitle{ID: button.ID, Title: button.Label},
		})
	}

	return c.post(ctx, outboundMessage{
		Type: "interactive",
		To:   to,
		Interactive: &interactive{
			Type:   "button",
			Header: header(prompt.Header),
			Body:   interactiveText{Text: prompt.Body},
			Footer: footer(prompt.Footer),
			Action: interactiveAction{Buttons: buttons},
		},
	})
}

func (c *Client) SendList(ctx context.Context, to string, prompt rich.ListPrompt) error {
	sections := make([]listSection, 0, len(prompt.Sections))
	for _, section := range prompt.Sections {
		rows := make([]listRow, 0, len(section.Rows))
		for _, row := range section.Rows {
			rows = append(rows, listRow{ID: row.ID, Title: row.Label, Description: row.Description})
		}
		sections = append(sections, listSection{Title: section.Title, Rows: rows})
	}

	label := prompt.ButtonLabel
	if strings.TrimSpace(label) == "" {
		label = rich.DefaultListButtonLabel
	}

	return c.post(ctx, outboundMessage{
		Type: "interactive",
		To:   to,
		Interactive: &interactive{
			Type:   "list",
			Header: header(prompt.Header),
			Body:   interactiveText{Text: prompt.Body},
			Footer: footer(prompt.Footer),
			Action: interactiveAction{Button: label, Sections: sections},
		},
	})
}

func (c *Client) post(ctx context.Context, msg outboundMessage) error {
	msg.MessagingProduct = "whatsapp"
	msg.RecipientType = "individual"

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build graph api request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	startedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("graph api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.log.Debug("Graph API request completed", "type", msg.Type, "to", msg.To, "duration_ms", time.Since(startedAt).Milliseconds())
	return nil
}

func header(text string) *interactiveTitle {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	return &interactiveTitle{Type: "text", Text: text}
}

func footer(text string) *interactiveText {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	return &interactiveText{Text: text}
}
