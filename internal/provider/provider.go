package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gigabhai/gigabhai/internal/reliability"
)

// Message is a single role-tagged entry in a completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider turns an ordered list of role-tagged messages into one text completion.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// Error is a failed upstream completion call.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider status %d: %s", e.Status, e.Message)
}

// RateLimited reports whether the upstream rejected the call with HTTP 429.
func (e *Error) RateLimited() bool {
	return reliability.IsRateLimitStatus(e.Status)
}

// Config controls provider construction.
type Config struct {
	Mode string

	GroqAPIKey string
	GroqAPIURL string
	GroqModel  string

	MistralAPIKey string
	MistralAPIURL string
	MistralModel  string
}

// New creates a completion provider for the configured mode. Mode "auto"
// prefers Groq when a key is present, then Mistral, then the mock.
func New(cfg Config) (Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.GroqAPIKey) != "" {
			return NewGroq(cfg.GroqAPIURL, cfg.GroqAPIKey, cfg.GroqModel), nil
		}
		if strings.TrimSpace(cfg.MistralAPIKey) != "" {
			return NewMistral(cfg.MistralAPIURL, cfg.MistralAPIKey, cfg.MistralModel), nil
		}
		return NewMock(), nil
	case "groq":
		if strings.TrimSpace(cfg.GroqAPIKey) == "" {
			return nil, errors.New("GROQ_API_KEY is required for groq mode")
		}
		return NewGroq(cfg.GroqAPIURL, cfg.GroqAPIKey, cfg.GroqModel), nil
	case "mistral":
		if strings.TrimSpace(cfg.MistralAPIKey) == "" {
			return nil, errors.New("MISTRAL_API_KEY is required for mistral mode")
		}
		return NewMistral(cfg.MistralAPIURL, cfg.MistralAPIKey, cfg.MistralModel), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unsupported provider mode %q", cfg.Mode)
	}
}
