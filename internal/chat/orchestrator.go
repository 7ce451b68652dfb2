package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gigabhai/gigabhai/internal/memory"
	"github.com/gigabhai/gigabhai/internal/observability"
	"github.com/gigabhai/gigabhai/internal/persona"
	"github.com/gigabhai/gigabhai/internal/policy"
	"github.com/gigabhai/gigabhai/internal/provider"
	"github.com/gigabhai/gigabhai/internal/store"
)

// Apology is returned as the assistant text when the provider fails after
// retries. The turn is still persisted so the conversation stays consistent.
const Apology = "Sorry, the AI could not generate a response at this time."

// ValidationError is the only error HandleTurn surfaces to callers. It still
// carries a stable conversation id so clients can retry against the same
// conversation.
type ValidationError struct {
	ConversationID string
	Reason         string
}

func (e *ValidationError) Error() string {
	return "invalid turn request: " + e.Reason
}

// TurnRequest is one inbound user message.
type TurnRequest struct {
	OwnerKey       string
	ConversationID string
	Persona        string
	Message        string
}

// TurnResult is the reply produced for one turn.
type TurnResult struct {
	ConversationID string
	Persona        string
	Response       string
	CreatedAt      time.Time
}

// Orchestrator drives a chat turn end to end: context assembly, completion,
// sanitization, persistence, and background memory recompaction.
type Orchestrator struct {
	store     store.Store
	provider  provider.Provider
	assembler *memory.Assembler
	compactor *memory.Compactor
	worker    *memory.Worker
	metrics   *observability.Metrics
	redactPII bool
}

type OrchestratorOptions struct {
	RedactPII bool
}

func NewOrchestrator(
	st store.Store,
	p provider.Provider,
	assembler *memory.Assembler,
	compactor *memory.Compactor,
	metrics *observability.Metrics,
	opts OrchestratorOptions,
) *Orchestrator {
	return &Orchestrator{
		store:     st,
		provider:  p,
		assembler: assembler,
		compactor: compactor,
		metrics:   metrics,
		redactPII: opts.RedactPII,
	}
}

// SetWorker attaches the background compaction worker. Without one,
// recompaction runs synchronously after the turn.
func (o *Orchestrator) SetWorker(w *memory.Worker) {
	o.worker = w
}

// HandleTurn processes one user message. The only error it returns is
// *ValidationError; every downstream failure degrades (apology response,
// skipped persistence) so the caller always gets a usable reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	started := time.Now()

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return TurnResult{}, &ValidationError{ConversationID: conversationID, Reason: "message must not be empty"}
	}
	if req.OwnerKey == "" {
		return TurnResult{}, &ValidationError{ConversationID: conversationID, Reason: "owner identity is required"}
	}

	if o.redactPII {
		if redacted, changed := policy.RedactPII(message); changed {
			message = redacted
		}
	}

	p := persona.Resolve(req.Persona)

	// Context comes from the id the client sent: a brand-new conversation
	// never touches the store.
	contextStart := time.Now()
	history := o.assembler.Context(ctx, req.OwnerKey, strings.TrimSpace(req.ConversationID))
	o.observeStage("context_assembly", contextStart)

	prompt := persona.Context(p.ID)
	prompt = append(prompt, history...)
	prompt = append(prompt, provider.Message{Role: provider.RoleUser, Content: message})

	outcome := "ok"
	completeStart := time.Now()
	response, err := o.provider.Complete(ctx, prompt)
	o.observeStage("provider_complete", completeStart)
	if err != nil {
		outcome = "provider_error"
		if o.metrics != nil {
			o.metrics.ObserveProviderError(o.provider.Name(), providerErrorCode(err))
		}
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("completion failed, substituting apology")
		response = Apology
	}
	if strings.TrimSpace(response) == "" {
		response = Apology
	}

	if err == nil {
		if clean, changed := policy.SanitizeResponse(response); changed {
			log.Debug().Str("conversation_id", conversationID).Msg("sanitized provider response")
			response = clean
		}
	}

	persistStart := time.Now()
	createdAt := time.Now().UTC()
	if _, err := o.store.AppendTurn(ctx, store.TurnRecord{
		OwnerKey:       req.OwnerKey,
		ConversationID: conversationID,
		Persona:        p.ID,
		UserText:       message,
		AssistantText:  response,
		CreatedAt:      createdAt,
	}); err != nil {
		if o.metrics != nil {
			o.metrics.ObserveStorageError("append_turn")
		}
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to persist turn")
	}
	o.observeStage("persist", persistStart)

	o.scheduleRecompaction(req.OwnerKey, conversationID)

	if o.metrics != nil {
		o.metrics.ObserveTurn(outcome, time.Since(started))
	}
	o.observeStage("turn_total", started)

	return TurnResult{
		ConversationID: conversationID,
		Persona:        p.ID,
		Response:       response,
		CreatedAt:      createdAt,
	}, nil
}

func (o *Orchestrator) scheduleRecompaction(ownerKey, conversationID string) {
	job := memory.Job{OwnerKey: ownerKey, ConversationID: conversationID}
	if o.worker != nil {
		o.worker.Enqueue(job)
		return
	}
	if err := o.Recompact(context.Background(), job); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("inline recompaction failed")
	}
}

// Recompact rebuilds the compressed memory for one conversation from its
// latest turn history and overwrites the stored digest wholesale. Running it
// twice for the same history is a no-op.
func (o *Orchestrator) Recompact(ctx context.Context, job memory.Job) error {
	started := time.Now()
	history, err := o.assembler.History(ctx, job.OwnerKey, job.ConversationID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	result := o.compactor.Compact(ctx, history)
	o.observeStage("compaction", started)
	if result.Fallback {
		if o.metrics != nil {
			o.metrics.ObserveCompaction("fallback")
		}
		log.Info().Str("conversation_id", job.ConversationID).Err(result.Err).Msg("compaction used recent-turn fallback")
	}
	if len(result.Entries) == 0 {
		return nil
	}

	if err := o.store.SetCompressedMemory(ctx, job.OwnerKey, job.ConversationID, result.Entries); err != nil {
		if o.metrics != nil {
			o.metrics.ObserveStorageError("set_compressed_memory")
		}
		return fmt.Errorf("store digest: %w", err)
	}
	return nil
}

// GenerateTitle asks the provider for a 1-2 word heading describing the given
// conversation excerpts.
func (o *Orchestrator) GenerateTitle(ctx context.Context, excerpts []string) (string, error) {
	joined := strings.TrimSpace(strings.Join(excerpts, "\n"))
	if joined == "" {
		return "", &ValidationError{Reason: "messages must not be empty"}
	}

	raw, err := o.provider.Complete(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: "You generate very short conversation titles. Reply with the title only, no quotes, no punctuation."},
		{Role: provider.RoleUser, Content: "Generate a 1-2 word title that captures the main topic discussed in this conversation:\n" + joined},
	})
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	title := policy.SanitizeTitle(raw)
	if title == "" {
		return "", fmt.Errorf("generate title: provider returned no usable text")
	}
	return title, nil
}

func (o *Orchestrator) observeStage(stage string, since time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveTurnStage(stage, time.Since(since))
	}
}

func providerErrorCode(err error) string {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return fmt.Sprintf("%d", perr.Status)
	}
	return "transport"
}
