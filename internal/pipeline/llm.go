package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/voicegpt/assistant/internal/metrics"
)

// SystemInstruction is the fixed system turn sent with every exchange.
const SystemInstruction = "You are a helpful voice assistant."

// ReplyResult holds the assistant's reply with timing.
type ReplyResult struct {
	Text      string  `json:"text"`
	LatencyMs float64 `json:"latency_ms"`
}

// DialogueClient produces one assistant reply for one transcript. Each call
// is a fresh, stateless exchange: exactly a system turn and a user turn, no
// history retained across runs.
type DialogueClient interface {
	Converse(ctx context.Context, transcript string) (*ReplyResult, error)
}

// LLMRouter dispatches to the correct dialogue backend by name.
type LLMRouter struct {
	*Router[DialogueClient]
}

// NewLLMRouter creates a router with registered dialogue backends.
func NewLLMRouter(backends map[string]DialogueClient, fallback string) *LLMRouter {
	return &LLMRouter{Router: NewRouter(backends, fallback)}
}

// Converse routes to the named backend and records stage latency.
func (r *LLMRouter) Converse(ctx context.Context, transcript, backend string) (*ReplyResult, error) {
	c, err := r.Pick(backend)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := c.Converse(ctx, transcript)
	if err != nil {
		metrics.Errors.WithLabelValues("generate", string(AsError(err).Kind)).Inc()
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	return result, nil
}

// OpenRouterClient calls an OpenAI-compatible chat completions endpoint.
type OpenRouterClient struct {
	url       string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewOpenRouterClient creates a chat completions client. url is the API base
// (e.g. https://openrouter.ai/api/v1); model is the fixed model selector and
// maxTokens bounds the generated output length.
func NewOpenRouterClient(url, apiKey, model string, maxTokens int, client *http.Client) *OpenRouterClient {
	return &OpenRouterClient{
		url:       url,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    client,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Converse sends the two-turn exchange and returns the first completion.
func (c *OpenRouterClient) Converse(ctx context.Context, transcript string) (*ReplyResult, error) {
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemInstruction},
			{Role: "user", Content: transcript},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return nil, Errf(KindBackend, "marshal chat request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, Errf(KindNetwork, "create chat request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, Errf(KindNetwork, "chat request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, Errf(KindBackend, "chat status %d: %s", resp.StatusCode, snippet)
	}

	var payload chatResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, Errf(KindBackend, "decode chat response: %v", err)
	}
	if len(payload.Choices) == 0 {
		return nil, Errf(KindBackend, "chat response has no choices")
	}
	reply := payload.Choices[0].Message.Content
	if reply == "" {
		return nil, Errf(KindBackend, "chat response has an empty completion")
	}

	return &ReplyResult{
		Text:      reply,
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}, nil
}
