package provider

import "context"

// Mistral completes prompts through the Mistral chat completions API.
type Mistral struct {
	client *chatClient
}

func NewMistral(url, apiKey, model string) *Mistral {
	return &Mistral{client: newChatClient(url, apiKey, model, 500)}
}

func (m *Mistral) Name() string { return "mistral" }

func (m *Mistral) Complete(ctx context.Context, messages []Message) (string, error) {
	return m.client.complete(ctx, messages)
}
