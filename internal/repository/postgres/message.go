package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// MessageRepository implements repository.MessageRepository using PostgreSQL
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

// Append persists a completed turn and assigns it an id and timestamp
func (r *MessageRepository) Append(ctx context.Context, message *repository.Message) error {
	message.Fecha = time.Now()

	if len(message.Metadatos) == 0 {
		message.Metadatos = []byte("{}")
	}

	query := `
		INSERT INTO mensaje_chatbot (matricula, session_id, mensaje, respuesta, fecha, contexto, metadatos)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		message.Matricula,
		message.SessionID,
		message.Mensaje,
		message.Respuesta,
		message.Fecha,
		message.Contexto,
		message.Metadatos,
	).Scan(&message.ID)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// History returns up to limit most recent messages for a session in
// ascending chronological order. The natural retrieval is descending,
// so the window is reversed before returning.
func (r *MessageRepository) History(ctx context.Context, sessionID string, limit int) ([]repository.Message, error) {
	if limit <= 0 {
		return []repository.Message{}, nil
	}

	var messages []repository.Message
	query := `
		SELECT id, matricula, session_id, mensaje, respuesta, fecha, contexto, metadatos
		FROM mensaje_chatbot
		WHERE session_id = $1
		ORDER BY fecha DESC, id DESC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &messages, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// CountBySession returns the number of stored turns for a session
func (r *MessageRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM mensaje_chatbot WHERE session_id = $1"

	if err := r.db.GetContext(ctx, &count, query, sessionID); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}

// List retrieves messages, optionally filtered by matricula or session,
// most recent first
func (r *MessageRepository) List(ctx context.Context, filter repository.MessageFilter) ([]repository.Message, error) {
	query := `
		SELECT id, matricula, session_id, mensaje, respuesta, fecha, contexto, metadatos
		FROM mensaje_chatbot
		WHERE ($1 = '' OR matricula = $1)
		  AND ($2 = '' OR session_id = $2)
		ORDER BY fecha DESC
		OFFSET $3 LIMIT $4
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var messages []repository.Message
	err := r.db.SelectContext(ctx, &messages, query, filter.Matricula, filter.SessionID, filter.Skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// Get retrieves a message by id
func (r *MessageRepository) Get(ctx context.Context, id int64) (*repository.Message, error) {
	var message repository.Message
	query := `
		SELECT id, matricula, session_id, mensaje, respuesta, fecha, contexto, metadatos
		FROM mensaje_chatbot
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &message, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}

// Delete removes a message (administrative operation)
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	query := "DELETE FROM mensaje_chatbot WHERE id = $1"
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
