package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ChatCompletionsProvider speaks the OpenAI chat-completions wire format.
// Groq exposes the same API, so both providers share this implementation.
type ChatCompletionsProvider struct {
	label   string
	baseURL string
	apiKey  string
	model   string
	opts    Options
	client  *http.Client
}

// NewChatCompletionsProvider creates a provider for an OpenAI-compatible API.
func NewChatCompletionsProvider(label, baseURL, apiKey, model string, opts Options) *ChatCompletionsProvider {
	return &ChatCompletionsProvider{
		label:   label,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt as a single user message and returns the completion.
func (p *ChatCompletionsProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%s generation failed: API key not configured", p.label)
	}
	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", p.label, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s generation failed (%d): %s", p.label, resp.StatusCode, string(b))
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s generation failed: no choices returned", p.label)
	}
	return out.Choices[0].Message.Content, nil
}

// Descriptor identifies the provider and model.
func (p *ChatCompletionsProvider) Descriptor() string {
	return fmt.Sprintf("%s (%s)", p.label, p.model)
}
