package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewAutoPrefersGroq(t *testing.T) {
	p, err := New(Config{Mode: "auto", GroqAPIKey: "gk", MistralAPIKey: "mk"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Name() != "groq" {
		t.Fatalf("Name() = %q, want %q", p.Name(), "groq")
	}
}

func TestNewAutoFallsBackToMock(t *testing.T) {
	p, err := New(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Name() != "mock" {
		t.Fatalf("Name() = %q, want %q", p.Name(), "mock")
	}
}

func TestNewExplicitModeRequiresKey(t *testing.T) {
	if _, err := New(Config{Mode: "groq"}); err == nil {
		t.Fatalf("New(groq) without key should fail")
	}
	if _, err := New(Config{Mode: "mistral"}); err == nil {
		t.Fatalf("New(mistral) without key should fail")
	}
	if _, err := New(Config{Mode: "nope"}); err == nil {
		t.Fatalf("New(nope) should fail")
	}
}

func TestChatClientCompleteParsesChoice(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Yo!"}},
			},
		})
	}))
	defer ts.Close()

	g := NewGroq(ts.URL, "secret", "llama3-70b-8192")
	text, err := g.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "persona A"},
		{Role: RoleSystem, Content: "persona B"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "Yo!" {
		t.Fatalf("Complete() = %q, want %q", text, "Yo!")
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
	// System turns collapse into one leading entry.
	if len(gotReq.Messages) != 2 {
		t.Fatalf("sent %d messages, want 2: %+v", len(gotReq.Messages), gotReq.Messages)
	}
	if gotReq.Messages[0].Role != RoleSystem || gotReq.Messages[0].Content != "persona A\npersona B" {
		t.Fatalf("merged system message = %+v", gotReq.Messages[0])
	}
	if gotReq.Messages[1].Role != RoleUser {
		t.Fatalf("last message role = %q, want user", gotReq.Messages[1].Role)
	}
}

func TestChatClientCompleteNonOKReturnsTypedError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer ts.Close()

	m := NewMistral(ts.URL, "secret", "mistral-large-latest")
	_, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatalf("Complete() expected error")
	}
	pErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if !pErr.RateLimited() {
		t.Fatalf("RateLimited() = false for status %d", pErr.Status)
	}
}

func TestMockEchoesLastUserMessage(t *testing.T) {
	m := NewMock()
	text, err := m.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "what up"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "I heard you: what up" {
		t.Fatalf("Complete() = %q", text)
	}
}
