// Package memory talks to the external memory API (supermemory-style v3
// endpoints). Documents are tagged with a container so several deployments
// can share one account.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mohammad-safakhou/composer/config"
)

// Client is a thin HTTP client for the memory API. A client without an API
// key is usable; every call reports unavailability instead of failing.
type Client struct {
	apiKey     string
	baseURL    string
	container  string
	httpClient *http.Client
}

func New(cfg config.MemoryConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		container:  cfg.Container,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

func (c *Client) do(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memory API status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// Ping checks the API with a minimal search.
func (c *Client) Ping(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	err := c.do(ctx, "/search", map[string]interface{}{
		"q": "test", "limit": 1, "containerTags": []string{c.container},
	}, nil)
	return err == nil
}

// StoreMessage pushes one conversation message as a tagged document and
// returns the created document id.
func (c *Client) StoreMessage(ctx context.Context, platform, recipient, message string, outgoing bool, timestamp time.Time) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("memory API key not configured")
	}
	direction := "Incoming"
	if outgoing {
		direction = "Outgoing"
	}
	ts := timestamp.UTC().Format(time.RFC3339)
	content := fmt.Sprintf(
		"Conversation Message\nPlatform: %s\nRecipient: %s\nDirection: %s\nTimestamp: %s\n\nMessage:\n%s",
		platform, recipient, direction, ts, message)

	payload := map[string]interface{}{
		"content": content,
		"metadata": map[string]interface{}{
			"type":        "conversation",
			"platform":    platform,
			"recipient":   recipient,
			"is_outgoing": outgoing,
			"timestamp":   ts,
		},
		"containerTags": []string{c.container},
	}

	var result struct {
		Document struct {
			ID string `json:"id"`
		} `json:"document"`
	}
	if err := c.do(ctx, "/documents", payload, &result); err != nil {
		return "", err
	}
	return result.Document.ID, nil
}

type searchResult struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]searchResult, error) {
	var out struct {
		Results []searchResult `json:"results"`
	}
	err := c.do(ctx, "/search", map[string]interface{}{
		"q":               query,
		"limit":           limit,
		"containerTags":   []string{c.container},
		"includeFullDocs": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// RemoteMessage is one conversation message recalled from the memory API.
type RemoteMessage struct {
	Text      string
	Outgoing  bool
	Timestamp string
	Platform  string
}

// messageText pulls the free-form message body out of a stored document.
func messageText(content string) string {
	if idx := strings.LastIndex(content, "Message:"); idx >= 0 {
		return strings.TrimSpace(content[idx+len("Message:"):])
	}
	return content
}

// History recalls a recipient's conversation, most recent first. A missing
// API key yields an empty result, not an error.
func (c *Client) History(ctx context.Context, recipient, platform string, limit int) ([]RemoteMessage, error) {
	if !c.Configured() {
		return nil, nil
	}
	results, err := c.search(ctx, fmt.Sprintf("conversation %s %s", recipient, platform), limit)
	if err != nil {
		return nil, err
	}

	var messages []RemoteMessage
	for _, item := range results {
		md := item.Metadata
		if md == nil {
			continue
		}
		if md["type"] != "conversation" || md["recipient"] != recipient || md["platform"] != platform {
			continue
		}
		outgoing, _ := md["is_outgoing"].(bool)
		ts, _ := md["timestamp"].(string)
		messages = append(messages, RemoteMessage{
			Text:      messageText(item.Content),
			Outgoing:  outgoing,
			Timestamp: ts,
			Platform:  platform,
		})
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].Timestamp > messages[j].Timestamp })
	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}
