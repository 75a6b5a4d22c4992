package channel

import (
	"context"

	"github.com/go-chi/chi/v5"

	"assistbot/pkg/bus"
	"assistbot/pkg/rich"
)

// Handler accepts one inbound event from a channel. It must return quickly;
// dispatch happens elsewhere.
type Handler func(context.Context, bus.InboundEvent)

// Adapter bridges one external messaging platform into the dispatch engine.
type Adapter interface {
	Name() string
	// Transport delivers rich messages back to senders of this channel.
	Transport() rich.Transport
	Run(context.Context, Handler) error
}

// Mounter is implemented by adapters that receive events over HTTP, such as
// webhook based channels.
type Mounter interface {
	Mount(r chi.Router)
}
