// Package gemini adapts the Google Gen AI SDK to llm.Client.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"recruitment-backend/internal/llm"
	"recruitment-backend/internal/shared/telemetry"
)

const defaultModel = "gemini-2.5-flash"

// Client implements llm.Client using the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Config configures a Client. BaseURL is only set in tests.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required", llm.ErrNotConfigured)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" || !strings.HasPrefix(model, "gemini") {
		model = defaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return "gemini" }

// Model returns the model used for completions.
func (c *Client) Model() string { return c.model }

// Complete sends req as a single-turn generation.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	config := &genai.GenerateContentConfig{}
	if sys := req.System(); sys != "" {
		config.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}
	if req.Temperature != nil {
		t := *req.Temperature
		config.Temperature = &t
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User()), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}

	fields := map[string]any{"provider": "gemini", "model": c.model}
	if u := resp.UsageMetadata; u != nil {
		fields["prompt_tokens"] = u.PromptTokenCount
		fields["completion_tokens"] = u.CandidatesTokenCount
		fields["total_tokens"] = u.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)
	return text, nil
}

var _ llm.Client = (*Client)(nil)
