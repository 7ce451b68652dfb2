package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessage(t *testing.T) {
	raw := []byte(`{"type":"client_message","conversation_id":"c1","persona":"roast_bhai","message":"roast me"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if msg.ConversationID != "c1" || msg.Persona != "roast_bhai" || msg.Message != "roast me" {
		t.Fatalf("unexpected client message: %+v", msg)
	}
}

func TestParseClientMessageMinimal(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_message","message":"hi"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if msg.ConversationID != "" || msg.Persona != "" {
		t.Fatalf("optional fields should be empty: %+v", msg)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsEmptyMessage(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_message","message":""}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsBadJSON(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{`))
	if err == nil {
		t.Fatalf("expected envelope error")
	}
}

func BenchmarkParseClientMessage(b *testing.B) {
	raw := []byte(`{"type":"client_message","conversation_id":"c1","message":"what's the plan bhai"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseClientMessage(raw); err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
	}
}
