package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// ConversationRepository implements repository.ConversationRepository
// using PostgreSQL
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new PostgreSQL conversation repository
func NewConversationRepository(db *sqlx.DB) repository.ConversationRepository {
	return &ConversationRepository{db: db}
}

// Get retrieves a conversation by session id. Returns (nil, nil) when
// the session has no conversation record yet.
func (r *ConversationRepository) Get(ctx context.Context, sessionID string) (*repository.Conversation, error) {
	var conversation repository.Conversation
	query := `
		SELECT id, session_id, matricula, titulo, fecha_inicio, fecha_ultima_actividad, resumen, temas
		FROM conversacion_chatbot
		WHERE session_id = $1
	`

	err := r.db.GetContext(ctx, &conversation, query, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conversation, nil
}

// UpsertActivity creates the conversation row on first sight of a
// session; on conflict it only refreshes fecha_ultima_actividad, never
// the matricula, titulo or temas already recorded.
func (r *ConversationRepository) UpsertActivity(ctx context.Context, sessionID string, matricula *string) error {
	query := `
		INSERT INTO conversacion_chatbot (session_id, matricula)
		VALUES ($1, $2)
		ON CONFLICT (session_id)
		DO UPDATE SET fecha_ultima_actividad = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, sessionID, matricula); err != nil {
		return fmt.Errorf("failed to upsert conversation activity: %w", err)
	}

	return nil
}

// FinalizeTitle sets the title only while it is unset, so a racing
// second first-turn cannot erase an existing title.
func (r *ConversationRepository) FinalizeTitle(ctx context.Context, sessionID, titulo string) error {
	query := `
		UPDATE conversacion_chatbot
		SET titulo = $2
		WHERE session_id = $1 AND titulo IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, sessionID, titulo); err != nil {
		return fmt.Errorf("failed to finalize title: %w", err)
	}

	return nil
}

// MergeTopics adds any topic not already present, preserving insertion
// order. Merging the same topic twice is a no-op.
func (r *ConversationRepository) MergeTopics(ctx context.Context, sessionID string, temas []string) error {
	if len(temas) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	var current repository.StringList
	err = tx.GetContext(ctx, &current,
		"SELECT temas FROM conversacion_chatbot WHERE session_id = $1 FOR UPDATE", sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to read topics: %w", err)
	}

	seen := make(map[string]bool, len(current))
	for _, tema := range current {
		seen[tema] = true
	}

	merged := current
	for _, tema := range temas {
		if tema == "" || seen[tema] {
			continue
		}
		seen[tema] = true
		merged = append(merged, tema)
	}

	if len(merged) == len(current) {
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE conversacion_chatbot SET temas = $2 WHERE session_id = $1", sessionID, merged)
	if err != nil {
		return fmt.Errorf("failed to merge topics: %w", err)
	}

	return tx.Commit()
}

// UpdateSummary unconditionally replaces the rolling summary
func (r *ConversationRepository) UpdateSummary(ctx context.Context, sessionID, resumen string) error {
	query := "UPDATE conversacion_chatbot SET resumen = $2 WHERE session_id = $1"

	if _, err := r.db.ExecContext(ctx, query, sessionID, resumen); err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}

	return nil
}

// List retrieves conversations ordered by most recent activity,
// optionally filtered by matricula
func (r *ConversationRepository) List(ctx context.Context, matricula string, skip, limit int) ([]*repository.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}

	var conversations []*repository.Conversation
	query := `
		SELECT id, session_id, matricula, titulo, fecha_inicio, fecha_ultima_actividad, resumen, temas
		FROM conversacion_chatbot
		WHERE ($1 = '' OR matricula = $1)
		ORDER BY fecha_ultima_actividad DESC
		OFFSET $2 LIMIT $3
	`

	err := r.db.SelectContext(ctx, &conversations, query, matricula, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return conversations, nil
}
