package memory

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gigabhai/gigabhai/internal/provider"
	"github.com/gigabhai/gigabhai/internal/store"
)

// Assembler produces the history context for a turn's prompt. The rules are
// ordered, first match wins:
//
//  1. no conversation id: empty context, the store is never queried
//  2. a compressed memory digest exists: use it verbatim
//  3. otherwise: the last rawWindow raw turns, reformatted to user/assistant
//     pairs in chronological order, trimmed to the last fallbackWindow
//
// Store failures degrade to an empty context so a turn can always proceed.
type Assembler struct {
	store          store.Store
	rawWindow      int
	fallbackWindow int
}

func NewAssembler(st store.Store, rawWindow, fallbackWindow int) *Assembler {
	if rawWindow <= 0 {
		rawWindow = 100
	}
	if fallbackWindow <= 0 {
		fallbackWindow = 20
	}
	return &Assembler{store: st, rawWindow: rawWindow, fallbackWindow: fallbackWindow}
}

func (a *Assembler) Context(ctx context.Context, ownerKey, conversationID string) []provider.Message {
	if conversationID == "" {
		return nil
	}

	entries, err := a.store.CompressedMemory(ctx, ownerKey, conversationID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("compressed memory read failed, proceeding without context")
		return nil
	}
	if len(entries) > 0 {
		out := make([]provider.Message, 0, len(entries))
		for _, e := range entries {
			out = append(out, provider.Message{Role: e.Role, Content: e.Content})
		}
		return out
	}

	turns, err := a.store.RecentTurns(ctx, ownerKey, conversationID, a.rawWindow)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("turn history read failed, proceeding without context")
		return nil
	}
	return pairTurns(turns, a.fallbackWindow)
}

// pairTurns flattens reverse-chronological turn records into chronological
// user/assistant message pairs, keeping only the last limit messages.
func pairTurns(turns []store.TurnRecord, limit int) []provider.Message {
	out := make([]provider.Message, 0, len(turns)*2)
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].UserText != "" {
			out = append(out, provider.Message{Role: provider.RoleUser, Content: turns[i].UserText})
		}
		if turns[i].AssistantText != "" {
			out = append(out, provider.Message{Role: provider.RoleAssistant, Content: turns[i].AssistantText})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// History returns the full chronological user/assistant pairs for a
// conversation, used as compaction input.
func (a *Assembler) History(ctx context.Context, ownerKey, conversationID string) ([]provider.Message, error) {
	turns, err := a.store.RecentTurns(ctx, ownerKey, conversationID, a.rawWindow)
	if err != nil {
		return nil, err
	}
	return pairTurns(turns, 0), nil
}
