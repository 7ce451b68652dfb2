package provider

import (
	"context"
	"fmt"
	"strings"
)

// Mock provides deterministic local replies when no provider key is configured.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Complete(ctx context.Context, messages []Message) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	var lastUser string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			lastUser = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if lastUser == "" {
		return "I am listening.", nil
	}
	return fmt.Sprintf("I heard you: %s", lastUser), nil
}
