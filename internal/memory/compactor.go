package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gigabhai/gigabhai/internal/provider"
	"github.com/gigabhai/gigabhai/internal/store"
)

const compactionInstruction = "You are a helpful assistant. The following is a conversation history. " +
	"Select the 10 most important messages that best capture the context, " +
	"and summarize or compress them if possible. ALWAYS include any key facts, numbers, " +
	"measurements, medical details, symptoms, diagnoses, or user questions. " +
	"NEVER omit any numbers, measurements, or important details about the user's health, " +
	"medical conditions, or personal facts. " +
	"Respond ONLY with a valid JSON array of objects, and nothing else. " +
	"Do NOT add explanations, greetings, or comments. " +
	"Each object must have a 'role' (user or assistant) and 'content'. " +
	"If you can merge similar messages, do so."

// Compactor distills a conversation's turn history into a short digest of its
// most important entries via a completion provider.
type Compactor struct {
	provider         provider.Provider
	maxEntries       int
	fallbackWindow   int
	includeAssistant bool
}

// CompactorOptions tune the compaction limits. Zero values take defaults.
type CompactorOptions struct {
	MaxEntries       int
	FallbackWindow   int
	IncludeAssistant bool
}

func NewCompactor(p provider.Provider, opts CompactorOptions) *Compactor {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 10
	}
	if opts.FallbackWindow <= 0 {
		opts.FallbackWindow = 20
	}
	return &Compactor{
		provider:         p,
		maxEntries:       opts.MaxEntries,
		fallbackWindow:   opts.FallbackWindow,
		includeAssistant: opts.IncludeAssistant,
	}
}

// Result is the outcome of one compaction run. Entries is always safe to
// store: when the provider digest was unusable it holds the recent-turn
// fallback and Fallback is true, with Err recording the cause.
type Result struct {
	Entries  []store.MemoryEntry
	Fallback bool
	Err      error
}

// Compact condenses the given turn history, oldest first. It never returns an
// error to the caller: any provider or parse failure degrades to the last
// fallbackWindow filtered turns.
func (c *Compactor) Compact(ctx context.Context, turns []provider.Message) Result {
	filtered := c.filter(turns)
	if len(filtered) == 0 {
		return Result{}
	}

	input := make([]provider.Message, 0, len(filtered)+1)
	input = append(input, provider.Message{Role: provider.RoleSystem, Content: compactionInstruction})
	input = append(input, filtered...)

	raw, err := c.provider.Complete(ctx, input)
	if err != nil {
		return c.fallback(filtered, fmt.Errorf("compaction completion: %w", err))
	}

	entries, err := ExtractEntries(raw)
	if err != nil {
		return c.fallback(filtered, err)
	}
	entries, err = validateEntries(entries)
	if err != nil {
		return c.fallback(filtered, err)
	}

	if len(entries) > c.maxEntries {
		entries = entries[:c.maxEntries]
	}
	return Result{Entries: entries}
}

func (c *Compactor) filter(turns []provider.Message) []provider.Message {
	out := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		switch t.Role {
		case provider.RoleUser:
			out = append(out, t)
		case provider.RoleAssistant:
			if c.includeAssistant {
				out = append(out, t)
			}
		}
	}
	return out
}

func (c *Compactor) fallback(filtered []provider.Message, cause error) Result {
	log.Warn().Err(cause).Msg("memory compaction fell back to recent turns")
	start := len(filtered) - c.fallbackWindow
	if start < 0 {
		start = 0
	}
	entries := make([]store.MemoryEntry, 0, len(filtered)-start)
	for _, t := range filtered[start:] {
		entries = append(entries, store.MemoryEntry{Role: t.Role, Content: t.Content})
	}
	return Result{Entries: entries, Fallback: true, Err: cause}
}

func validateEntries(entries []store.MemoryEntry) ([]store.MemoryEntry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("digest is an empty array")
	}
	for i, e := range entries {
		role := strings.ToLower(strings.TrimSpace(e.Role))
		if role != provider.RoleUser && role != provider.RoleAssistant {
			return nil, fmt.Errorf("digest entry %d has invalid role %q", i, e.Role)
		}
		if strings.TrimSpace(e.Content) == "" {
			return nil, fmt.Errorf("digest entry %d has empty content", i)
		}
		entries[i].Role = role
	}
	return entries, nil
}
