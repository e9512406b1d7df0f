package analyzer

import "context"

// Role of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat turn sent to the completion endpoint.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is the subset of a chat completion request the analyzer uses.
type CompletionRequest struct {
	Model     string
	Messages  []Message
	MaxTokens int
}

// Completion is the first choice's content plus token usage.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Completer calls a chat completion endpoint.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
