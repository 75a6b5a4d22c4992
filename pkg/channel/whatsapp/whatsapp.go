// Package whatsapp connects the WhatsApp Cloud API: a webhook for inbound
// messages and a Graph API client for replies.
package whatsapp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"assistbot/pkg/channel"
	"assistbot/pkg/config"
	"assistbot/pkg/rich"
)

const channelName = "whatsapp"

// Adapter receives webhook notifications and replies through the Graph API.
type Adapter struct {
	cfg    config.WhatsAppConfig
	client *Client
	log    *slog.Logger

	mu      sync.RWMutex
	handler channel.Handler
}

func NewAdapter(cfg config.WhatsAppConfig, log *slog.Logger, opts ...ClientOption) (*Adapter, error) {
	if strings.TrimSpace(cfg.VerifyToken) == "" {
		return nil, errors.New("channels.whatsapp.verify_token is required")
	}

	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:    cfg,
		client: client,
		log:    log.With("component", "channel.whatsapp"),
	}, nil
}

func (a *Adapter) Name() string {
	return channelName
}

func (a *Adapter) Transport() rich.Transport {
	return a.client
}

// Mount registers the webhook routes on r.
func (a *Adapter) Mount(r chi.Router) {
	path := a.cfg.WebhookPath
	if strings.TrimSpace(path) == "" {
		path = "/webhook"
	}

	r.Get(path, a.verify)
	r.Post(path, a.receive)
}

// Run accepts webhook deliveries until ctx ends. Notifications that arrive
// while the adapter is not running are answered with 503 so the platform
// retries them.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	a.setHandler(handler)
	defer a.setHandler(nil)

	a.log.Info("WhatsApp channel started", "webhook_path", a.cfg.WebhookPath)
	<-ctx.Done()
	return nil
}

func (a *Adapter) setHandler(handler channel.Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = handler
}

func (a *Adapter) currentHandler() channel.Handler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.handler
}
