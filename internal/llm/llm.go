// Package llm defines the chat-completion capability used by the
// model-backed generation backend, plus the prompts it sends.
package llm

import (
	"context"
	"errors"
)

// Roles understood by every provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat message.
type Message struct {
	Role    string
	Content string
}

// Request is one chat completion.
type Request struct {
	Messages    []Message
	JSON        bool
	Temperature *float32
	MaxTokens   int
}

// System returns the concatenated system messages.
func (r Request) System() string {
	return joinRole(r.Messages, RoleSystem)
}

// User returns the concatenated user messages.
func (r Request) User() string {
	return joinRole(r.Messages, RoleUser)
}

func joinRole(messages []Message, role string) string {
	out := ""
	for _, m := range messages {
		if m.Role != role {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}

// Client completes chat requests.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

var (
	// ErrNotConfigured is returned when a provider is selected without credentials.
	ErrNotConfigured = errors.New("llm provider not configured")
	// ErrEmptyResponse is returned when a provider answers without content.
	ErrEmptyResponse = errors.New("llm response empty")
)
