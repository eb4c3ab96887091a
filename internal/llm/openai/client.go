package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recruitment-backend/internal/llm"
	"recruitment-backend/internal/shared/telemetry"
)

const (
	apiURL         = "https://api.openai.com/v1/chat/completions"
	defaultTimeout = 120 * time.Second
)

// Client implements llm.Client over the Chat Completions API. The same wire
// format serves OpenAI and Azure OpenAI; only the URL and auth header differ.
type Client struct {
	name       string
	url        string
	model      string
	authHeader string
	authValue  string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithURL overrides the completion endpoint.
func WithURL(u string) Option {
	return func(c *Client) {
		if strings.TrimSpace(u) != "" {
			c.url = u
		}
	}
}

// NewClient constructs an OpenAI client.
func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: LLM_MODEL is required for OpenAI", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is required", llm.ErrNotConfigured)
	}
	c := &Client{
		name:       "openai",
		url:        apiURL,
		model:      model,
		authHeader: "Authorization",
		authValue:  "Bearer " + apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewAzureClient constructs a client for an Azure OpenAI deployment.
func NewAzureClient(endpoint, apiKey, deployment, apiVersion string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: AZURE_OPENAI_ENDPOINT is required", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: AZURE_OPENAI_API_KEY is required", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(deployment) == "" {
		return nil, fmt.Errorf("%w: AZURE_OPENAI_DEPLOYMENT is required", llm.ErrNotConfigured)
	}
	c := &Client{
		name:       "azure",
		url:        azureURL(endpoint, deployment, apiVersion),
		model:      deployment,
		authHeader: "api-key",
		authValue:  apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func azureURL(endpoint, deployment, apiVersion string) string {
	q := url.Values{}
	q.Set("api-version", apiVersion)
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s", endpoint, url.PathEscape(deployment), q.Encode())
}

// Name identifies the provider.
func (c *Client) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends req and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	messages := toChatMessages(req.Messages)
	reqBody := chatRequest{
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if c.name == "openai" {
		reqBody.Model = c.model
	}
	if req.JSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if req.Temperature != nil && !isGPT5(c.model) {
		reqBody.Temperature = req.Temperature
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set(c.authHeader, c.authValue)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("%s request timeout: %w", c.name, err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("%s http status %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", fmt.Errorf("%s response parse: %w", c.name, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s http status %d: %s (%s)", c.name, resp.StatusCode, parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s http status %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s response missing choices", c.name)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s: %w", c.name, llm.ErrEmptyResponse)
	}
	c.logUsage(req, parsed)
	return content, nil
}

func (c *Client) logUsage(req llm.Request, parsed chatResponse) {
	fields := map[string]any{
		"provider":    c.name,
		"model":       c.model,
		"prompt_hash": PromptHash(req.Messages),
	}
	if parsed.Usage != nil {
		fields["prompt_tokens"] = parsed.Usage.PromptTokens
		fields["completion_tokens"] = parsed.Usage.CompletionTokens
		fields["total_tokens"] = parsed.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
