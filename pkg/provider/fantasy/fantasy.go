package fantasy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	core "charm.land/fantasy"
	provideropenai "charm.land/fantasy/providers/openai"

	"assistbot/pkg/config"
	providertypes "assistbot/pkg/provider/types"
)

const providerName = "fantasy"

type languageModelProvider interface {
	LanguageModel(ctx context.Context, modelID string) (core.LanguageModel, error)
}

// Client generates freeform replies through a charm fantasy agent over an
// OpenAI-compatible provider.
type Client struct {
	provider       languageModelProvider
	requestTimeout time.Duration
	modelID        string
	generate       func(context.Context, core.LanguageModel, core.AgentCall) (*core.AgentResult, error)
}

func New(cfg *config.Config) (*Client, error) {
	apiKey := resolveAPIKey(cfg.Providers.OpenAI)
	if apiKey == "" {
		return nil, errors.New("an API key must be set for the fantasy backend")
	}

	modelID, err := normalizeModel(cfg.Assistant.Model)
	if err != nil {
		return nil, err
	}

	providerOptions := []provideropenai.Option{provideropenai.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.Providers.OpenAI.BaseURL); baseURL != "" {
		providerOptions = append(providerOptions, provideropenai.WithBaseURL(baseURL))
	}
	if organization := strings.TrimSpace(cfg.Providers.OpenAI.Organization); organization != "" {
		providerOptions = append(providerOptions, provideropenai.WithOrganization(organization))
	}
	if project := strings.TrimSpace(cfg.Providers.OpenAI.Project); project != "" {
		providerOptions = append(providerOptions, provideropenai.WithProject(project))
	}

	fantasyProvider, err := provideropenai.New(providerOptions...)
	if err != nil {
		return nil, fmt.Errorf("initialize fantasy openai provider: %w", err)
	}

	return &Client{
		provider:       fantasyProvider,
		requestTimeout: time.Duration(cfg.Providers.OpenAI.RequestTimeoutSeconds) * time.Second,
		modelID:        modelID,
		generate:       generateWithFantasyAgent,
	}, nil
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.provider.LanguageModel(ctx, c.modelID); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

func (c *Client) Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.Completion, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return providertypes.Completion{}, errors.New("prompt is required")
	}

	modelID := c.modelID
	if strings.TrimSpace(req.Model) != "" {
		normalized, err := normalizeModel(req.Model)
		if err != nil {
			return providertypes.Completion{}, err
		}
		modelID = normalized
	}

	languageModel, err := c.provider.LanguageModel(ctx, modelID)
	if err != nil {
		return providertypes.Completion{}, fmt.Errorf("resolve language model: %w", err)
	}

	call := core.AgentCall{
		Prompt:   prompt,
		Messages: buildMessages(req.System, req.History),
	}
	if req.MaxTokens > 0 {
		maxTokens := int64(req.MaxTokens)
		call.MaxOutputTokens = &maxTokens
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		call.Temperature = &temperature
	}

	generate := c.generate
	if generate == nil {
		generate = generateWithFantasyAgent
	}

	result, err := generate(ctx, languageModel, call)
	if err != nil {
		return providertypes.Completion{}, fmt.Errorf("generate failed: %w", err)
	}

	text := extractText(result.Response.Content)
	if text == "" {
		return providertypes.Completion{}, errors.New("generate succeeded but returned no text")
	}

	usage := providertypes.TokenUsage{
		InputTokens:     result.TotalUsage.InputTokens,
		OutputTokens:    result.TotalUsage.OutputTokens,
		TotalTokens:     result.TotalUsage.TotalTokens,
		ReasoningTokens: result.TotalUsage.ReasoningTokens,
		CacheReadTokens: result.TotalUsage.CacheReadTokens,
	}
	metadata := providertypes.CompletionMetadata{Provider: providerName, Model: modelID}
	if !usage.IsZero() {
		metadata.Usage = &usage
	}

	return providertypes.Completion{Text: text, Metadata: metadata}, nil
}

func buildMessages(system string, history []providertypes.Turn) []core.Message {
	messages := make([]core.Message, 0, len(history)+1)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, textMessage(core.MessageRoleSystem, system))
	}
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if turn.Role == providertypes.RoleAssistant {
			messages = append(messages, textMessage(core.MessageRoleAssistant, content))
			continue
		}
		messages = append(messages, core.NewUserMessage(content))
	}

	return messages
}

func textMessage(role core.MessageRole, text string) core.Message {
	return core.Message{
		Role:    role,
		Content: []core.MessagePart{core.TextPart{Text: text}},
	}
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
		return "", fmt.Errorf("model provider %q is not supported by fantasy backend", providerID)
	}

	return modelID, nil
}

func extractText(content core.ResponseContent) string {
	lines := make([]string, 0)
	for _, part := range content {
		if part.GetType() != core.ContentTypeText {
			continue
		}

		textPart, ok := core.AsContentType[core.TextContent](part)
		if !ok {
			continue
		}

		line := strings.TrimSpace(textPart.Text)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func generateWithFantasyAgent(ctx context.Context, model core.LanguageModel, call core.AgentCall) (*core.AgentResult, error) {
	agent := core.NewAgent(model)
	return agent.Generate(ctx, call)
}
