package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	structuredBeta   = "structured-outputs-2025-11-13"
	haikuModel       = "claude-haiku-4-5-20251001"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", ErrNoAPIKey)
	}
	if model == "" {
		model = haikuModel
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   anthropicURL,
		httpClient: &http.Client{},
	}, nil
}

type anthropicRequest struct {
	Model        string             `json:"model"`
	MaxTokens    int                `json:"max_tokens"`
	Messages     []anthropicMessage `json:"messages"`
	OutputFormat *outputFormat      `json:"output_format,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type outputFormat struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema"`
}

type anthropicResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, prompt, nil)
}

func (c *AnthropicClient) GenerateStructured(ctx context.Context, prompt string, schema Schema, out any) error {
	text, err := c.send(ctx, prompt, &outputFormat{
		Type:   "json_schema",
		Schema: schema.jsonSchema(),
	})
	if err != nil {
		return err
	}
	return decodeJSON(text, out)
}

func (c *AnthropicClient) send(ctx context.Context, prompt string, format *outputFormat) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 512,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
		OutputFormat: format,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	if format != nil {
		req.Header.Set("anthropic-beta", structuredBeta)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPIRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrAPIRequest, resp.StatusCode, string(body))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Content) == 0 || apiResp.Content[0].Type != "text" {
		return "", ErrInvalidResponse
	}
	return apiResp.Content[0].Text, nil
}
