package types

// Role identifies the author of one conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a sender's conversation history.
type Turn struct {
	Role    Role
	Content string
}

// CompletionRequest is the backend-neutral input for one freeform reply.
type CompletionRequest struct {
	Model       string
	System      string
	History     []Turn
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completion is the normalized backend response payload.
type Completion struct {
	Text     string
	Metadata CompletionMetadata
}

// CompletionMetadata carries backend/model identity and optional usage accounting.
type CompletionMetadata struct {
	Provider string
	Model    string
	Usage    *TokenUsage
}

// TokenUsage captures token accounting across backends.
type TokenUsage struct {
	InputTokens     int64
	OutputTokens    int64
	TotalTokens     int64
	ReasoningTokens int64
	CacheReadTokens int64
}

// IsZero reports whether all token counters are unset/zero.
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 &&
		u.OutputTokens == 0 &&
		u.TotalTokens == 0 &&
		u.ReasoningTokens == 0 &&
		u.CacheReadTokens == 0
}
