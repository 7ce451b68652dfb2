package store

import (
	"context"
	"errors"
	"time"
)

// TurnRecord stores one exchanged turn: the user message and the assistant
// response produced for it.
type TurnRecord struct {
	ID             string    `json:"id"`
	OwnerKey       string    `json:"owner_key"`
	ConversationID string    `json:"conversation_id"`
	Persona        string    `json:"persona"`
	UserText       string    `json:"user_text"`
	AssistantText  string    `json:"assistant_text"`
	CreatedAt      time.Time `json:"created_at"`
}

// MemoryEntry is one element of a conversation's compressed memory digest.
type MemoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the listing metadata for one conversation.
type Conversation struct {
	ID          string    `json:"id"`
	OwnerKey    string    `json:"owner_key"`
	Title       string    `json:"title"`
	Persona     string    `json:"persona"`
	LastMessage string    `json:"last_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrNotFound is returned when a conversation does not exist for the owner.
var ErrNotFound = errors.New("conversation not found")

// ErrOwnerMismatch is returned when a write names a conversation id that
// already belongs to a different owner.
var ErrOwnerMismatch = errors.New("conversation belongs to a different owner")

// Store persists per-conversation turn logs and their compressed memory.
// Every read and write is scoped by (ownerKey, conversationID).
type Store interface {
	// AppendTurn appends one turn, creating the conversation row when it does
	// not exist yet, and returns the conversation id.
	AppendTurn(ctx context.Context, record TurnRecord) (string, error)
	// RecentTurns returns up to limit turns in reverse-chronological order.
	RecentTurns(ctx context.Context, ownerKey, conversationID string, limit int) ([]TurnRecord, error)
	// CompressedMemory returns the stored digest, or an empty slice when none.
	CompressedMemory(ctx context.Context, ownerKey, conversationID string) ([]MemoryEntry, error)
	// SetCompressedMemory replaces the stored digest wholesale.
	SetCompressedMemory(ctx context.Context, ownerKey, conversationID string, entries []MemoryEntry) error
	ListConversations(ctx context.Context, ownerKey string, limit int) ([]Conversation, error)
	UpdateConversation(ctx context.Context, ownerKey, conversationID, title, persona string) error
	DeleteConversation(ctx context.Context, ownerKey, conversationID string) error
	Close() error
}

func defaultTitle(at time.Time) string {
	return "Chat " + at.Format("2006-01-02 15:04")
}
