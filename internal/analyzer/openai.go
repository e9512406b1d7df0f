package analyzer

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"smartlink/internal/config"
)

// OpenAICompleter implements Completer against an OpenAI-compatible
// /chat/completions endpoint with bearer authentication.
type OpenAICompleter struct {
	apiKey string
	client *openai.Client
}

// NewOpenAICompleter creates a completer. An empty apiKey is accepted here and
// reported as config.ErrMissingAPIKey on the first Complete call.
func NewOpenAICompleter(apiKey, baseURL string, httpClient *http.Client) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAICompleter{
		apiKey: apiKey,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if c.apiKey == "" {
		return nil, config.ErrMissingAPIKey
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            msgs,
		MaxCompletionTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	out := &Completion{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
	}
	return out, nil
}
