package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"assistbot/pkg/agent/profile"
	"assistbot/pkg/config"
	"assistbot/pkg/provider"
	providertypes "assistbot/pkg/provider/types"
)

const defaultTimeout = 10 * time.Second

// Responder answers unclassified text through a completion backend and falls
// back to canned replies when the backend is missing or fails.
type Responder struct {
	completer    provider.Completer
	memory       *Memory
	timeout      time.Duration
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
	log          *slog.Logger
}

type Option func(*Responder)

func WithTimeout(timeout time.Duration) Option {
	return func(r *Responder) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

func WithMemory(memory *Memory) Option {
	return func(r *Responder) {
		if memory != nil {
			r.memory = memory
		}
	}
}

// WithSystemPrompt replaces the system prompt. An empty prompt sends none.
func WithSystemPrompt(prompt string) Option {
	return func(r *Responder) {
		r.systemPrompt = strings.TrimSpace(prompt)
	}
}

func WithModel(model string) Option {
	return func(r *Responder) {
		r.model = strings.TrimSpace(model)
	}
}

func WithGeneration(maxTokens int, temperature float64) Option {
	return func(r *Responder) {
		r.maxTokens = maxTokens
		r.temperature = temperature
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Responder) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResponder accepts a nil completer, in which case every reply comes from
// the offline fallback set.
func NewResponder(completer provider.Completer, opts ...Option) *Responder {
	systemPrompt, _ := profile.ResolveSystemProfile(profile.DefaultProfile)
	r := &Responder{
		completer:    completer,
		memory:       NewMemory(defaultMaxExchanges),
		timeout:      defaultTimeout,
		systemPrompt: systemPrompt,
		log:          slog.Default().With("component", "agent.responder"),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FromConfig wires a responder with the assistant and dispatch settings. An
// inline system prompt wins over the named profile.
func FromConfig(cfg *config.Config, completer provider.Completer) (*Responder, error) {
	systemPrompt := strings.TrimSpace(cfg.Assistant.SystemPrompt)
	if systemPrompt == "" {
		resolved, err := profile.ResolveSystemProfile(cfg.Assistant.Profile)
		if err != nil {
			return nil, err
		}
		systemPrompt = resolved
	}

	return NewResponder(completer,
		WithMemory(NewMemory(cfg.Assistant.HistoryExchanges)),
		WithTimeout(cfg.Dispatch.ProviderTimeout()),
		WithSystemPrompt(systemPrompt),
		WithGeneration(cfg.Assistant.MaxTokens, cfg.Assistant.Temperature),
	), nil
}

func (r *Responder) Respond(ctx context.Context, senderID string, text string) provider.Result[string] {
	text = strings.TrimSpace(text)
	if r.completer == nil {
		return provider.Failure[string](FallbackReply(text))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.log.With("sender_id", senderID)
	startedAt := time.Now()
	history := r.memory.Turns(senderID)

	completion, err := r.completer.Complete(ctx, providertypes.CompletionRequest{
		Model:       r.model,
		System:      r.systemPrompt,
		History:     history,
		Prompt:      text,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		log.Warn("Freeform reply failed, using fallback",
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"history_turns", len(history),
			"error", err,
		)
		return provider.Failure[string](FallbackReply(text))
	}

	reply := strings.TrimSpace(completion.Text)
	if reply == "" {
		log.Warn("Freeform reply was empty, using fallback", "duration_ms", time.Since(startedAt).Milliseconds())
		return provider.Failure[string](FallbackReply(text))
	}

	r.memory.AppendExchange(senderID, text, reply)

	attrs := []any{
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"provider", completion.Metadata.Provider,
		"model", completion.Metadata.Model,
	}
	if usage := completion.Metadata.Usage; usage != nil {
		attrs = append(attrs, "total_tokens", usage.TotalTokens)
	}
	log.Debug("Freeform reply completed", attrs...)

	return provider.Success(reply)
}

// Health reports whether the completion backend is reachable. The offline
// responder is always healthy.
func (r *Responder) Health(ctx context.Context) error {
	if r.completer == nil {
		return nil
	}

	return r.completer.Health(ctx)
}

// Fallback returns the offline reply Respond would use for text.
func (r *Responder) Fallback(text string) string {
	return FallbackReply(strings.TrimSpace(text))
}
