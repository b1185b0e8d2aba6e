// Anthropic Messages API client, the default Generator implementation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"

	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024
)

// Client wraps the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client

	// Rate limiting: max calls per minute across all agents.
	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewClient creates an Anthropic-backed generator. Returns nil if apiKey
// is empty (deliberation disabled; controllers degrade to reflexes).
func NewClient(apiKey, model string) *Client {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxPerMin:  60,
	}
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request is the API request body.
type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// response is the API response body.
type response struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate implements Generator. Transport and rate-limit failures come
// back as a failed Result, not an error, so callers degrade uniformly.
func (c *Client) Generate(ctx context.Context, genReq Request) (*Result, error) {
	if !c.Enabled() {
		return &Result{Success: false, ErrorDetail: "client not configured"}, nil
	}

	c.mu.Lock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		c.mu.Unlock()
		return &Result{Success: false, ErrorDetail: fmt.Sprintf("rate limit exceeded (%d calls/min)", c.maxPerMin)}, nil
	}
	c.callCount++
	c.mu.Unlock()

	maxTokens := genReq.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	prompt := genReq.Prompt
	if genReq.ResponseFormat != "" {
		prompt += "\n\nRespond ONLY in this format:\n" + genReq.ResponseFormat
	}

	req := request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    genReq.System,
		Messages:  []Message{{Role: "user", Content: prompt}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Result{Success: false, ErrorDetail: fmt.Sprintf("API call: %v", err)}, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Success: false, ErrorDetail: fmt.Sprintf("read response: %v", err)}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return &Result{Success: false, ErrorDetail: fmt.Sprintf("API error %d: %s", resp.StatusCode, string(respBody))}, nil
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return &Result{Success: false, ErrorDetail: fmt.Sprintf("unmarshal response: %v", err)}, nil
	}

	if len(apiResp.Content) == 0 {
		return &Result{Success: false, ErrorDetail: "empty response"}, nil
	}

	slog.Debug("anthropic call",
		"model", c.model,
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens,
	)

	return &Result{Success: true, Response: apiResp.Content[0].Text}, nil
}
