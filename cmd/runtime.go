package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"assistbot/pkg/agent"
	"assistbot/pkg/config"
	"assistbot/pkg/gateway"
	"assistbot/pkg/provider"
	"assistbot/pkg/provider/food"
	"assistbot/pkg/provider/weather"
	"assistbot/pkg/state"
)

// buildDependencies opens the state store and wires the content providers and
// the freeform responder. The returned close function is never nil.
func buildDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (gateway.Dependencies, func() error, error) {
	store, closeStore, err := state.Open(ctx, cfg.State)
	if err != nil {
		return gateway.Dependencies{}, func() error { return nil }, fmt.Errorf("open state store: %w", err)
	}

	completer, err := provider.NewCompleter(cfg)
	if err != nil {
		log.Warn("Completion backend unavailable; using offline replies", "backend", cfg.Assistant.Backend, "error", err)
	}

	responder, err := agent.FromConfig(cfg, completer)
	if err != nil {
		_ = closeStore()
		return gateway.Dependencies{}, func() error { return nil }, fmt.Errorf("initialize responder: %w", err)
	}

	return gateway.Dependencies{
		Store:     store,
		Weather:   weather.New(cfg.Providers.Weather),
		Food:      food.New(cfg.Providers.Food),
		Responder: responder,
	}, closeStore, nil
}

func backendName(cfg *config.Config) string {
	if cfg.Assistant.Backend == "" {
		return "openai"
	}

	return cfg.Assistant.Backend
}
