package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// StringList is a JSONB-backed list of strings.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// Message represents one chatbot turn: the user text plus the reply
// generated for it. Rows are immutable after insert except metadatos,
// which may be filled in after the reply is produced.
type Message struct {
	ID        int64          `db:"id" json:"id"`
	Matricula *string        `db:"matricula" json:"matricula,omitempty"`
	SessionID string         `db:"session_id" json:"session_id"`
	Mensaje   string         `db:"mensaje" json:"mensaje"`
	Respuesta string         `db:"respuesta" json:"respuesta"`
	Fecha     time.Time      `db:"fecha" json:"fecha"`
	Contexto  *string        `db:"contexto" json:"contexto,omitempty"`
	Metadatos types.JSONText `db:"metadatos" json:"metadatos,omitempty"`
}

// Conversation is the per-session tracking record. There is exactly one
// per session_id; titulo is write-once, resumen is replaced on a cadence
// and temas grows as a deduplicated union across turns.
type Conversation struct {
	ID                   int64      `db:"id" json:"id"`
	SessionID            string     `db:"session_id" json:"session_id"`
	Matricula            *string    `db:"matricula" json:"matricula,omitempty"`
	Titulo               *string    `db:"titulo" json:"titulo,omitempty"`
	FechaInicio          time.Time  `db:"fecha_inicio" json:"fecha_inicio"`
	FechaUltimaActividad time.Time  `db:"fecha_ultima_actividad" json:"fecha_ultima_actividad"`
	Resumen              *string    `db:"resumen" json:"resumen,omitempty"`
	Temas                StringList `db:"temas" json:"temas,omitempty"`
}

// User is a platform account, keyed by matricula
type User struct {
	ID              int64     `db:"id" json:"id"`
	Matricula       string    `db:"matricula" json:"matricula"`
	Nombre          string    `db:"nombre" json:"nombre"`
	ApellidoPaterno string    `db:"apellido_paterno" json:"apellido_paterno"`
	ApellidoMaterno string    `db:"apellido_materno" json:"apellido_materno"`
	ContrasenaHash  string    `db:"contrasena_hash" json:"-"`
	Rol             string    `db:"rol" json:"rol"`
	FechaRegistro   time.Time `db:"fecha_registro" json:"fecha_registro"`
	Correo          string    `db:"correo" json:"correo"`
	SemestreID      *int64    `db:"semestre_id" json:"semestre_id,omitempty"`
}

// StudentProfile is the slice of user data used to personalize the
// assistant's system directive.
type StudentProfile struct {
	Nombre   string
	Semestre string
}

// MessageFilter narrows message listings
type MessageFilter struct {
	Matricula string
	SessionID string
	Skip      int
	Limit     int
}

// MessageRepository defines chatbot message storage operations
type MessageRepository interface {
	// Append persists a completed turn, assigning id and fecha.
	Append(ctx context.Context, message *Message) error
	// History returns up to limit most recent messages for the
	// session in ascending chronological order.
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
	List(ctx context.Context, filter MessageFilter) ([]Message, error)
	Get(ctx context.Context, id int64) (*Message, error)
	Delete(ctx context.Context, id int64) error
}

// ConversationRepository defines conversation tracking operations
type ConversationRepository interface {
	// Get returns (nil, nil) when the session has no conversation yet.
	Get(ctx context.Context, sessionID string) (*Conversation, error)
	// UpsertActivity creates the conversation on first sight of a
	// session and otherwise only touches fecha_ultima_actividad.
	UpsertActivity(ctx context.Context, sessionID string, matricula *string) error
	// FinalizeTitle sets titulo only while it is unset.
	FinalizeTitle(ctx context.Context, sessionID, titulo string) error
	// MergeTopics adds topics not already present; idempotent.
	MergeTopics(ctx context.Context, sessionID string, temas []string) error
	// UpdateSummary unconditionally replaces resumen.
	UpdateSummary(ctx context.Context, sessionID, resumen string) error
	List(ctx context.Context, matricula string, skip, limit int) ([]*Conversation, error)
}

// UserRepository defines platform account operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByMatricula(ctx context.Context, matricula string) (*User, error)
	// Profile returns (nil, nil) for unknown matriculas.
	Profile(ctx context.Context, matricula string) (*StudentProfile, error)
}
