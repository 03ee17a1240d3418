package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/composer/config"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicClient creates a client from provider configuration.
func NewAnthropicClient(cfg config.ProviderConfig) *AnthropicClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnthropicClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a credential is present.
func (c *AnthropicClient) Configured() bool { return c.apiKey != "" }

// Complete sends a single message request and returns the first text block.
func (c *AnthropicClient) Complete(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("anthropic: %w", ErrNotConfigured)
	}

	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type msgReq struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature,omitempty"`
		System      string  `json:"system,omitempty"`
		Messages    []msg   `json:"messages"`
	}

	body, err := json.Marshal(msgReq{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      rewriteSystemPrompt,
		Messages:    []msg{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Anthropic status %d", resp.StatusCode)
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return out.Content[0].Text, nil
}
