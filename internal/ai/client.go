// Package ai defines the generation client the pipeline talks to and its
// provider backends.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arashthr/shelfmark/internal/config"
)

const (
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

var (
	ErrNoAPIKey        = errors.New("api key not configured")
	ErrAPIRequest      = errors.New("API request failed")
	ErrInvalidResponse = errors.New("invalid API response")
	ErrUnknownProvider = errors.New("unknown AI provider")
)

// Client is the narrow contract the pipeline uses for text generation.
type Client interface {
	// Generate returns free text for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStructured asks for a JSON object matching schema and decodes it into out.
	GenerateStructured(ctx context.Context, prompt string, schema Schema, out any) error
}

// Schema describes a flat JSON object the model must return.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

type Property struct {
	Type        string // "string", "number", "integer", "boolean"
	Description string
}

// NewClient builds the backend selected by cfg.Provider.
func NewClient(ctx context.Context, cfg config.AIConfig) (Client, error) {
	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model)
	case ProviderOllama:
		client = NewOllamaClient(cfg.OllamaBaseURL, cfg.Model)
	case ProviderAnthropic:
		client, err = NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		client = WithTimeout(client, cfg.Timeout)
	}
	return client, nil
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds every call made through next.
func WithTimeout(next Client, timeout time.Duration) Client {
	return &timeoutClient{next: next, timeout: timeout}
}

func (c *timeoutClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.Generate(ctx, prompt)
}

func (c *timeoutClient) GenerateStructured(ctx context.Context, prompt string, schema Schema, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.GenerateStructured(ctx, prompt, schema, out)
}

// decodeJSON decodes a model response, tolerating markdown code fences.
func decodeJSON(text string, out any) error {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: unmarshal structured response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// jsonSchema renders s as a JSON Schema object.
func (s Schema) jsonSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}
