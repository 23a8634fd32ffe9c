package pipeline

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient produces replies through the official OpenAI SDK. Registered
// as an alternate dialogue backend when an OpenAI key is configured.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIDialogueClient creates an SDK-backed dialogue client.
func NewOpenAIDialogueClient(apiKey, model string, maxTokens int) *OpenAIClient {
	return &OpenAIClient{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Converse sends the two-turn exchange and returns the first completion.
func (c *OpenAIClient) Converse(ctx context.Context, transcript string) (*ReplyResult, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, Errf(KindBackend, "openai status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, Errf(KindNetwork, "openai request: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, Errf(KindBackend, "openai response has no choices")
	}
	reply := resp.Choices[0].Message.Content
	if reply == "" {
		return nil, Errf(KindBackend, "openai response has an empty completion")
	}

	return &ReplyResult{
		Text:      reply,
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}, nil
}
