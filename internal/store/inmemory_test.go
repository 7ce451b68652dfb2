package store

import (
	"context"
	"testing"
)

func TestAppendTurnMintsConversation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	convID, err := s.AppendTurn(ctx, TurnRecord{
		OwnerKey: "owner-1",
		Persona:  "swag_bhai",
		UserText: "hi",
	})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if convID == "" {
		t.Fatalf("AppendTurn() minted empty conversation id")
	}

	convs, err := s.ListConversations(ctx, "owner-1", 10)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 1 || convs[0].ID != convID {
		t.Fatalf("conversations = %+v, want one with id %q", convs, convID)
	}
	if convs[0].LastMessage != "hi" {
		t.Fatalf("LastMessage = %q, want %q", convs[0].LastMessage, "hi")
	}
}

func TestRecentTurnsReverseChronological(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	var convID string
	for _, text := range []string{"one", "two", "three"} {
		id, err := s.AppendTurn(ctx, TurnRecord{
			OwnerKey:       "owner-1",
			ConversationID: convID,
			UserText:       text,
		})
		if err != nil {
			t.Fatalf("AppendTurn(%q) error = %v", text, err)
		}
		convID = id
	}

	turns, err := s.RecentTurns(ctx, "owner-1", convID, 2)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].UserText != "three" || turns[1].UserText != "two" {
		t.Fatalf("turns out of order: %q, %q", turns[0].UserText, turns[1].UserText)
	}
}

func TestConversationIsolation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	a, err := s.AppendTurn(ctx, TurnRecord{OwnerKey: "owner-1", UserText: "secret of a"})
	if err != nil {
		t.Fatalf("AppendTurn(a) error = %v", err)
	}
	b, err := s.AppendTurn(ctx, TurnRecord{OwnerKey: "owner-1", UserText: "secret of b"})
	if err != nil {
		t.Fatalf("AppendTurn(b) error = %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct conversation ids")
	}

	turns, err := s.RecentTurns(ctx, "owner-1", a, 10)
	if err != nil {
		t.Fatalf("RecentTurns(a) error = %v", err)
	}
	for _, turn := range turns {
		if turn.UserText == "secret of b" {
			t.Fatalf("conversation a leaked a turn from b")
		}
	}

	// Same conversation id under a different owner key stays invisible.
	other, err := s.RecentTurns(ctx, "owner-2", a, 10)
	if err != nil {
		t.Fatalf("RecentTurns(other owner) error = %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("owner-2 sees %d turns of owner-1", len(other))
	}
}

func TestAppendTurnRejectsForeignConversationID(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	convID, err := s.AppendTurn(ctx, TurnRecord{OwnerKey: "owner-1", UserText: "mine"})
	if err != nil {
		t.Fatalf("AppendTurn(owner-1) error = %v", err)
	}

	if _, err := s.AppendTurn(ctx, TurnRecord{
		OwnerKey:       "owner-2",
		ConversationID: convID,
		UserText:       "hijack attempt",
	}); err != ErrOwnerMismatch {
		t.Fatalf("AppendTurn(owner-2, foreign id) error = %v, want ErrOwnerMismatch", err)
	}

	if err := s.SetCompressedMemory(ctx, "owner-2", convID, []MemoryEntry{
		{Role: "user", Content: "planted"},
	}); err != ErrOwnerMismatch {
		t.Fatalf("SetCompressedMemory(owner-2, foreign id) error = %v, want ErrOwnerMismatch", err)
	}

	// Nothing of owner-2's attempt is visible anywhere.
	turns, err := s.RecentTurns(ctx, "owner-1", convID, 10)
	if err != nil || len(turns) != 1 || turns[0].UserText != "mine" {
		t.Fatalf("owner-1 turns = %+v (err %v), want the single original turn", turns, err)
	}
	convs, err := s.ListConversations(ctx, "owner-2", 10)
	if err != nil || len(convs) != 0 {
		t.Fatalf("owner-2 conversations = %+v (err %v), want none", convs, err)
	}

	// A deleted conversation releases its id for reuse.
	if err := s.DeleteConversation(ctx, "owner-1", convID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if _, err := s.AppendTurn(ctx, TurnRecord{
		OwnerKey:       "owner-2",
		ConversationID: convID,
		UserText:       "fresh start",
	}); err != nil {
		t.Fatalf("AppendTurn after delete error = %v", err)
	}
}

func TestCompressedMemoryOverwrite(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.SetCompressedMemory(ctx, "owner-1", "c1", []MemoryEntry{
		{Role: "user", Content: "my cyst is 1.6cm"},
		{Role: "user", Content: "i live in tumkur"},
	}); err != nil {
		t.Fatalf("SetCompressedMemory() error = %v", err)
	}
	if err := s.SetCompressedMemory(ctx, "owner-1", "c1", []MemoryEntry{
		{Role: "user", Content: "my cyst is 1.6cm"},
	}); err != nil {
		t.Fatalf("SetCompressedMemory() overwrite error = %v", err)
	}

	entries, err := s.CompressedMemory(ctx, "owner-1", "c1")
	if err != nil {
		t.Fatalf("CompressedMemory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 (overwrite, not merge)", len(entries))
	}

	none, err := s.CompressedMemory(ctx, "owner-1", "c2")
	if err != nil {
		t.Fatalf("CompressedMemory(c2) error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("memory leaked across conversations: %+v", none)
	}
}

func TestUpdateAndDeleteConversation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	convID, err := s.AppendTurn(ctx, TurnRecord{OwnerKey: "owner-1", UserText: "hi"})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	if err := s.UpdateConversation(ctx, "owner-1", convID, "Cyst talk", ""); err != nil {
		t.Fatalf("UpdateConversation() error = %v", err)
	}
	convs, err := s.ListConversations(ctx, "owner-1", 10)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if convs[0].Title != "Cyst talk" {
		t.Fatalf("Title = %q, want %q", convs[0].Title, "Cyst talk")
	}

	if err := s.UpdateConversation(ctx, "owner-1", "missing", "x", ""); err != ErrNotFound {
		t.Fatalf("UpdateConversation(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteConversation(ctx, "owner-1", convID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if err := s.DeleteConversation(ctx, "owner-1", convID); err != ErrNotFound {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
}
