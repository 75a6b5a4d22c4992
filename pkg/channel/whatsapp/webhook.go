package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"assistbot/pkg/bus"
	"assistbot/pkg/logger"
)

const (
	maxWebhookBody  = 1 << 20
	signatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
)

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string      `json:"field"`
	Value changeValue `json:"value"`
}

type changeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []inboundMessage `json:"messages"`
	Statuses         []messageStatus  `json:"statuses"`
}

type inboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *inboundText        `json:"text,omitempty"`
	Interactive *inboundInteractive `json:"interactive,omitempty"`
}

type inboundText struct {
	Body string `json:"body"`
}

type inboundInteractive struct {
	Type        string        `json:"type"`
	ButtonReply *inboundReply `json:"button_reply,omitempty"`
	ListReply   *inboundReply `json:"list_reply,omitempty"`
}

type inboundReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type messageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// verify answers the Graph API subscription handshake.
func (a *Adapter) verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	expected := strings.TrimSpace(a.cfg.VerifyToken)
	if mode == "" || expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		a.log.Warn("Webhook verification failed", "mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	a.log.Info("Webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// receive accepts webhook notifications and queues their messages.
func (a *Adapter) receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		http.Error(w, "Invalid Request", http.StatusBadRequest)
		return
	}
	if len(body) > maxWebhookBody {
		http.Error(w, "Payload Too Large", http.StatusRequestEntityTooLarge)
		return
	}

	if secret := strings.TrimSpace(a.cfg.AppSecret); secret != "" && !validSignature(secret, body, r.Header.Get(signatureHeader)) {
		a.log.Warn("Rejected webhook with invalid signature")
		http.Error(w, "Invalid Signature", http.StatusUnauthorized)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Entry) == 0 {
		http.Error(w, "Invalid Request", http.StatusBadRequest)
		return
	}

	handler := a.currentHandler()
	if handler == nil {
		http.Error(w, "Channel Not Running", http.StatusServiceUnavailable)
		return
	}

	events := a.parse(payload)
	for _, event := range events {
		a.log.Info("Received message",
			"sender_id", event.SenderID,
			"kind", event.Kind,
			"message_id", event.Metadata["message_id"],
			"content", logger.Preview(event.Body+event.SelectionID),
		)
		handler(r.Context(), event)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

// parse flattens a notification into inbound events and logs delivery statuses.
func (a *Adapter) parse(payload webhookPayload) []bus.InboundEvent {
	var events []bus.InboundEvent
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				a.log.Debug("Message status", "message_id", status.ID, "status", status.Status, "to", status.RecipientID)
			}
			for _, message := range change.Value.Messages {
				event, ok := eventFromMessage(message)
				if !ok {
					a.log.Debug("Ignoring unsupported message", "message_id", message.ID, "type", message.Type)
					continue
				}
				events = append(events, event)
			}
		}
	}

	return events
}

func eventFromMessage(message inboundMessage) (bus.InboundEvent, bool) {
	var event bus.InboundEvent

	switch message.Type {
	case "text":
		if message.Text == nil {
			return bus.InboundEvent{}, false
		}
		event = bus.TextEvent(channelName, message.From, message.Text.Body)
	case "interactive":
		if message.Interactive == nil {
			return bus.InboundEvent{}, false
		}
		switch {
		case message.Interactive.Type == string(bus.ReplyButton) && message.Interactive.ButtonReply != nil:
			event = bus.InteractiveEvent(channelName, message.From, bus.ReplyButton, message.Interactive.ButtonReply.ID)
		case message.Interactive.Type == string(bus.ReplyList) && message.Interactive.ListReply != nil:
			event = bus.InteractiveEvent(channelName, message.From, bus.ReplyList, message.Interactive.ListReply.ID)
		default:
			return bus.InboundEvent{}, false
		}
	default:
		return bus.InboundEvent{}, false
	}

	if !event.Valid() {
		return bus.InboundEvent{}, false
	}
	event.Metadata = map[string]string{"message_id": message.ID}

	return event, true
}

func validSignature(secret string, body []byte, header string) bool {
	signature, ok := strings.CutPrefix(strings.TrimSpace(header), signaturePrefix)
	if !ok {
		return false
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
