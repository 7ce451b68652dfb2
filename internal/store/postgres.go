package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversations, turns and compressed memory in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			owner_key TEXT NOT NULL,
			title TEXT NOT NULL,
			persona TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_owner_updated ON conversations (owner_key, updated_at DESC);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			owner_key TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			persona TEXT NOT NULL DEFAULT '',
			user_text TEXT NOT NULL,
			assistant_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages (owner_key, conversation_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			conversation_id TEXT PRIMARY KEY,
			owner_key TEXT NOT NULL,
			entries JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, record TurnRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ConversationID == "" {
		record.ConversationID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	// The guarded upsert leaves the row untouched when the id already exists
	// under another owner, so a caller can never bump or adopt someone
	// else's conversation.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, owner_key, title, persona, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		 WHERE conversations.owner_key = EXCLUDED.owner_key`,
		record.ConversationID,
		record.OwnerKey,
		defaultTitle(record.CreatedAt),
		record.Persona,
		record.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("upsert conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrOwnerMismatch
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO messages (id, owner_key, conversation_id, persona, user_text, assistant_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID,
		record.OwnerKey,
		record.ConversationID,
		record.Persona,
		record.UserText,
		record.AssistantText,
		record.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("append turn: %w", err)
	}
	return record.ConversationID, nil
}

func (s *PostgresStore) RecentTurns(ctx context.Context, ownerKey, conversationID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_key, conversation_id, persona, user_text, assistant_text, created_at
		 FROM messages
		 WHERE owner_key=$1 AND conversation_id=$2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		ownerKey,
		conversationID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	items := make([]TurnRecord, 0, limit)
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(&r.ID, &r.OwnerKey, &r.ConversationID, &r.Persona, &r.UserText, &r.AssistantText, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CompressedMemory(ctx context.Context, ownerKey, conversationID string) ([]MemoryEntry, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT entries FROM summaries WHERE owner_key=$1 AND conversation_id=$2`,
		ownerKey,
		conversationID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query compressed memory: %w", err)
	}

	var entries []MemoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode compressed memory: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) SetCompressedMemory(ctx context.Context, ownerKey, conversationID string, entries []MemoryEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode compressed memory: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO summaries (conversation_id, owner_key, entries, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (conversation_id) DO UPDATE SET entries = EXCLUDED.entries, updated_at = now()
		 WHERE summaries.owner_key = EXCLUDED.owner_key`,
		conversationID,
		ownerKey,
		raw,
	)
	if err != nil {
		return fmt.Errorf("store compressed memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOwnerMismatch
	}
	return nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, ownerKey string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.owner_key, c.title, c.persona, c.created_at, c.updated_at,
			COALESCE((SELECT m.user_text FROM messages m
				WHERE m.owner_key=c.owner_key AND m.conversation_id=c.id
				ORDER BY m.created_at DESC LIMIT 1), '')
		 FROM conversations c
		 WHERE c.owner_key=$1
		 ORDER BY c.updated_at DESC
		 LIMIT $2`,
		ownerKey,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	items := make([]Conversation, 0, limit)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.OwnerKey, &c.Title, &c.Persona, &c.CreatedAt, &c.UpdatedAt, &c.LastMessage); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateConversation(ctx context.Context, ownerKey, conversationID, title, persona string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations
		 SET title = COALESCE(NULLIF($3, ''), title),
		     persona = COALESCE(NULLIF($4, ''), persona),
		     updated_at = now()
		 WHERE owner_key=$1 AND id=$2`,
		ownerKey,
		conversationID,
		title,
		persona,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteConversation(ctx context.Context, ownerKey, conversationID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM conversations WHERE owner_key=$1 AND id=$2`,
		ownerKey,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM messages WHERE owner_key=$1 AND conversation_id=$2`,
		ownerKey, conversationID,
	); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM summaries WHERE owner_key=$1 AND conversation_id=$2`,
		ownerKey, conversationID,
	); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
