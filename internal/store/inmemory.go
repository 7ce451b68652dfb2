package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	owners map[string]map[string]*conversationState

	// ownerOf indexes conversation ids globally so writes naming an id held
	// by a different owner are rejected, matching the Postgres guard.
	ownerOf map[string]string
}

type conversationState struct {
	meta    Conversation
	turns   []TurnRecord
	summary []MemoryEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		owners:  make(map[string]map[string]*conversationState),
		ownerOf: make(map[string]string),
	}
}

func (s *InMemoryStore) AppendTurn(_ context.Context, record TurnRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ConversationID == "" {
		record.ConversationID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if owner, ok := s.ownerOf[record.ConversationID]; ok && owner != record.OwnerKey {
		return "", ErrOwnerMismatch
	}

	convs := s.owners[record.OwnerKey]
	if convs == nil {
		convs = make(map[string]*conversationState)
		s.owners[record.OwnerKey] = convs
	}
	state, ok := convs[record.ConversationID]
	if !ok {
		state = &conversationState{
			meta: Conversation{
				ID:        record.ConversationID,
				OwnerKey:  record.OwnerKey,
				Title:     defaultTitle(record.CreatedAt),
				Persona:   record.Persona,
				CreatedAt: record.CreatedAt,
			},
		}
		convs[record.ConversationID] = state
	}
	state.meta.UpdatedAt = record.CreatedAt
	state.meta.LastMessage = record.UserText
	state.turns = append(state.turns, record)
	s.ownerOf[record.ConversationID] = record.OwnerKey

	return record.ConversationID, nil
}

func (s *InMemoryStore) RecentTurns(_ context.Context, ownerKey, conversationID string, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.lookup(ownerKey, conversationID)
	if state == nil || len(state.turns) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(state.turns) {
		limit = len(state.turns)
	}

	// Newest first, matching the Postgres query ordering.
	out := make([]TurnRecord, 0, limit)
	for i := len(state.turns) - 1; i >= len(state.turns)-limit; i-- {
		out = append(out, state.turns[i])
	}
	return out, nil
}

func (s *InMemoryStore) CompressedMemory(_ context.Context, ownerKey, conversationID string) ([]MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.lookup(ownerKey, conversationID)
	if state == nil || len(state.summary) == 0 {
		return nil, nil
	}
	out := make([]MemoryEntry, len(state.summary))
	copy(out, state.summary)
	return out, nil
}

func (s *InMemoryStore) SetCompressedMemory(_ context.Context, ownerKey, conversationID string, entries []MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.ownerOf[conversationID]; ok && owner != ownerKey {
		return ErrOwnerMismatch
	}

	convs := s.owners[ownerKey]
	if convs == nil {
		convs = make(map[string]*conversationState)
		s.owners[ownerKey] = convs
	}
	state, ok := convs[conversationID]
	if !ok {
		state = &conversationState{
			meta: Conversation{
				ID:        conversationID,
				OwnerKey:  ownerKey,
				Title:     defaultTitle(time.Now().UTC()),
				CreatedAt: time.Now().UTC(),
			},
		}
		convs[conversationID] = state
	}
	s.ownerOf[conversationID] = ownerKey
	state.summary = make([]MemoryEntry, len(entries))
	copy(state.summary, entries)
	return nil
}

func (s *InMemoryStore) ListConversations(_ context.Context, ownerKey string, limit int) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := s.owners[ownerKey]
	out := make([]Conversation, 0, len(convs))
	for _, state := range convs {
		out = append(out, state.meta)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) UpdateConversation(_ context.Context, ownerKey, conversationID, title, persona string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.lookup(ownerKey, conversationID)
	if state == nil {
		return ErrNotFound
	}
	if title != "" {
		state.meta.Title = title
	}
	if persona != "" {
		state.meta.Persona = persona
	}
	state.meta.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) DeleteConversation(_ context.Context, ownerKey, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs := s.owners[ownerKey]
	if _, ok := convs[conversationID]; !ok {
		return ErrNotFound
	}
	delete(convs, conversationID)
	delete(s.ownerOf, conversationID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) lookup(ownerKey, conversationID string) *conversationState {
	convs := s.owners[ownerKey]
	if convs == nil {
		return nil
	}
	return convs[conversationID]
}
