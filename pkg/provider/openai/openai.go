package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"assistbot/pkg/config"
	providertypes "assistbot/pkg/provider/types"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const providerName = "openai"

// Client talks to any OpenAI-compatible chat completion endpoint (DeepSeek by default).
type Client struct {
	client         osdk.Client
	requestTimeout time.Duration
	model          string
}

func New(cfg *config.Config, extra ...option.RequestOption) (*Client, error) {
	providerCfg := cfg.Providers.OpenAI
	apiKey := resolveAPIKey(providerCfg)
	if apiKey == "" {
		return nil, fmt.Errorf("%s must be set for the openai backend", describeKeyEnv(providerCfg))
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(providerCfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if organization := strings.TrimSpace(providerCfg.Organization); organization != "" {
		opts = append(opts, option.WithOrganization(organization))
	}
	if project := strings.TrimSpace(providerCfg.Project); project != "" {
		opts = append(opts, option.WithProject(project))
	}

	requestTimeout := time.Duration(providerCfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(requestTimeout))
	}
	opts = append(opts, extra...)

	model, err := normalizeModel(cfg.Assistant.Model)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:         osdk.NewClient(opts...),
		requestTimeout: requestTimeout,
		model:          model,
	}, nil
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "health")
	startedAt := time.Now()
	log.Debug("provider request started")

	if _, err := c.client.Models.List(ctx); err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return nil
}

func (c *Client) Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.Completion, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "complete")
	startedAt := time.Now()

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return providertypes.Completion{}, errors.New("prompt is required")
	}

	model := c.model
	if strings.TrimSpace(req.Model) != "" {
		normalized, err := normalizeModel(req.Model)
		if err != nil {
			return providertypes.Completion{}, err
		}
		model = normalized
	}

	params := osdk.ChatCompletionNewParams{
		Model:    osdk.ChatModel(model),
		Messages: buildMessages(req.System, req.History, prompt),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = osdk.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = osdk.Float(req.Temperature)
	}

	log.Debug("provider request started",
		"model", model,
		"history_turns", len(req.History),
		"prompt_length", len(prompt),
	)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.Completion{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no choices")
		return providertypes.Completion{}, errors.New("chat completion returned no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no output text")
		return providertypes.Completion{}, errors.New("chat completion succeeded but returned no text")
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(text))

	usage := providertypes.TokenUsage{
		InputTokens:     completion.Usage.PromptTokens,
		OutputTokens:    completion.Usage.CompletionTokens,
		TotalTokens:     completion.Usage.TotalTokens,
		ReasoningTokens: completion.Usage.CompletionTokensDetails.ReasoningTokens,
		CacheReadTokens: completion.Usage.PromptTokensDetails.CachedTokens,
	}
	metadata := providertypes.CompletionMetadata{Provider: providerName, Model: model}
	if !usage.IsZero() {
		metadata.Usage = &usage
	}

	return providertypes.Completion{Text: text, Metadata: metadata}, nil
}

func buildMessages(system string, history []providertypes.Turn, prompt string) []osdk.ChatCompletionMessageParamUnion {
	messages := make([]osdk.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, osdk.SystemMessage(system))
	}
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case providertypes.RoleAssistant:
			messages = append(messages, osdk.AssistantMessage(content))
		default:
			messages = append(messages, osdk.UserMessage(content))
		}
	}

	return append(messages, osdk.UserMessage(prompt))
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.openai")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func resolveAPIKey(cfg config.OpenAIProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

func describeKeyEnv(cfg config.OpenAIProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		return apiKeyEnv + " or OPENAI_API_KEY"
	}

	return "OPENAI_API_KEY"
}

// normalizeModel accepts "model" or "provider/model" with an OpenAI-compatible provider prefix.
func normalizeModel(model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", errors.New("model is required")
	}

	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 {
		return model, nil
	}

	providerID := strings.TrimSpace(parts[0])
	modelID := strings.TrimSpace(parts[1])
	if providerID == "" || modelID == "" {
		return "", errors.New("model is invalid")
	}
	if providerID != "openai" && providerID != "deepseek" {
		return "", fmt.Errorf("model provider %q is not supported by openai backend", providerID)
	}

	return modelID, nil
}
