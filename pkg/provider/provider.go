package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"assistbot/pkg/config"
	providerfantasy "assistbot/pkg/provider/fantasy"
	provideropenai "assistbot/pkg/provider/openai"
	providertypes "assistbot/pkg/provider/types"
)

// WeatherLookup resolves a city from free text and fetches a displayable report.
type WeatherLookup interface {
	ResolveCity(text string) (string, bool)
	Fetch(ctx context.Context, city string) Result[string]
}

// DisplayItem is one food product summarized for a result list.
type DisplayItem struct {
	Code    string
	Name    string
	Display string
}

// Category is a browsable food category.
type Category struct {
	ID    string
	Name  string
	Emoji string
}

// FoodLookup searches the product database.
type FoodLookup interface {
	ExtractBarcode(text string) (string, bool)
	ExtractQuery(text string) (string, bool)
	ByBarcode(ctx context.Context, code string) Result[string]
	ByName(ctx context.Context, term string, limit int) Result[[]DisplayItem]
	ByCategory(ctx context.Context, id string, limit int) Result[[]DisplayItem]
	Categories() []Category
}

// FreeformResponder answers unclassified text. It never returns an empty
// message: failures carry an offline fallback reply.
type FreeformResponder interface {
	Respond(ctx context.Context, senderID string, text string) Result[string]
}

// Completer is a chat completion backend used by the freeform responder.
type Completer interface {
	Health(ctx context.Context) error
	Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.Completion, error)
}

// NewCompleter builds the backend selected by assistant.backend. It returns
// nil without error when the backend is "offline" so the responder only uses
// its fallback replies.
func NewCompleter(cfg *config.Config) (Completer, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Assistant.Backend))
	if backend == "" {
		backend = "openai"
	}

	slog.Default().With("component", "provider.factory").Debug("Resolving completion backend", "backend", backend)

	switch backend {
	case "openai":
		client, err := provideropenai.New(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "fantasy":
		client, err := providerfantasy.New(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "offline":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported assistant backend: %s", backend)
	}
}
