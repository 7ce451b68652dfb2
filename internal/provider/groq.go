package provider

import "context"

// Groq completes prompts through the Groq chat completions API.
type Groq struct {
	client *chatClient
}

func NewGroq(url, apiKey, model string) *Groq {
	return &Groq{client: newChatClient(url, apiKey, model, 4096)}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Complete(ctx context.Context, messages []Message) (string, error) {
	return g.client.complete(ctx, messages)
}
