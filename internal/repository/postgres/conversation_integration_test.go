//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// Runs against a migrated database:
//
//	SYSMENTOR_TEST_DSN=postgres://... go test -tags integration ./internal/repository/postgres
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("SYSMENTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("SYSMENTOR_TEST_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestConversation(t *testing.T, db *sqlx.DB, repo repository.ConversationRepository) string {
	t.Helper()
	sessionID := uuid.New().String()
	require.NoError(t, repo.UpsertActivity(context.Background(), sessionID, nil))
	t.Cleanup(func() {
		db.Exec("DELETE FROM conversacion_chatbot WHERE session_id = $1", sessionID)
	})
	return sessionID
}

func TestFinalizeTitleWriteOnceSQL(t *testing.T) {
	db := testDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	sessionID := newTestConversation(t, db, repo)

	require.NoError(t, repo.FinalizeTitle(ctx, sessionID, "Primer título"))
	require.NoError(t, repo.FinalizeTitle(ctx, sessionID, "Segundo título"))

	conv, err := repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.NotNil(t, conv.Titulo)
	assert.Equal(t, "Primer título", *conv.Titulo)
}

func TestMergeTopicsIdempotentSQL(t *testing.T) {
	db := testDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	sessionID := newTestConversation(t, db, repo)

	require.NoError(t, repo.MergeTopics(ctx, sessionID, []string{"grafos", "pilas"}))
	require.NoError(t, repo.MergeTopics(ctx, sessionID, []string{"pilas", "grafos"}))
	require.NoError(t, repo.MergeTopics(ctx, sessionID, []string{"colas", ""}))

	conv, err := repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, []string{"grafos", "pilas", "colas"}, []string(conv.Temas))
}

func TestUpsertActivityKeepsExistingRecord(t *testing.T) {
	db := testDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	sessionID := newTestConversation(t, db, repo)

	require.NoError(t, repo.FinalizeTitle(ctx, sessionID, "Título"))
	require.NoError(t, repo.MergeTopics(ctx, sessionID, []string{"redes"}))

	// A later turn only refreshes the activity timestamp
	require.NoError(t, repo.UpsertActivity(ctx, sessionID, nil))

	conv, err := repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, conv.Titulo)
	assert.Equal(t, "Título", *conv.Titulo)
	assert.Equal(t, []string{"redes"}, []string(conv.Temas))
	assert.True(t, conv.FechaUltimaActividad.After(conv.FechaInicio) ||
		conv.FechaUltimaActividad.Equal(conv.FechaInicio))
}
