package chatbot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSummarizer(conversations *fakeConversationRepo, messages *fakeMessageRepo, client *fakeLLM) *Summarizer {
	return NewSummarizer(conversations, messages, client, Prompts{
		System:   defaultSystemPrompt,
		Analysis: defaultAnalysisPrompt,
		Title:    defaultTitlePrompt,
		Summary:  defaultSummaryPrompt,
	}, 5, quietLogger())
}

func commitTurn(t *testing.T, s *Summarizer, messages *fakeMessageRepo, sessionID, mensaje string) {
	t.Helper()
	seedMessage(t, messages, sessionID, mensaje, "respuesta", "")
	s.OnTurnCommitted(context.Background(), CommittedTurn{
		SessionID: sessionID,
		Mensaje:   mensaje,
		Respuesta: "respuesta",
	})
}

func TestFirstTurnGeneratesTitle(t *testing.T) {
	conversations := newFakeConversationRepo()
	messages := &fakeMessageRepo{}
	client := &fakeLLM{generate: func(prompt string) (string, error) {
		return "Listas enlazadas básicas\n", nil
	}}
	summarizer := newTestSummarizer(conversations, messages, client)

	commitTurn(t, summarizer, messages, "s1", "¿Qué es una lista enlazada?")

	conv, err := conversations.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.NotNil(t, conv.Titulo)
	assert.Equal(t, "Listas enlazadas básicas", *conv.Titulo)
	assert.Nil(t, conv.Resumen)
}

func TestTitleIsWriteOnce(t *testing.T) {
	conversations := newFakeConversationRepo()
	ctx := context.Background()

	require.NoError(t, conversations.UpsertActivity(ctx, "s1", nil))
	require.NoError(t, conversations.FinalizeTitle(ctx, "s1", "Primer título"))
	require.NoError(t, conversations.FinalizeTitle(ctx, "s1", "Segundo título"))

	conv, err := conversations.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, conv.Titulo)
	assert.Equal(t, "Primer título", *conv.Titulo)
}

func TestMergeTopicsIsIdempotent(t *testing.T) {
	conversations := newFakeConversationRepo()
	ctx := context.Background()

	require.NoError(t, conversations.UpsertActivity(ctx, "s1", nil))
	require.NoError(t, conversations.MergeTopics(ctx, "s1", []string{"grafos", "pilas"}))
	require.NoError(t, conversations.MergeTopics(ctx, "s1", []string{"pilas", "grafos"}))
	require.NoError(t, conversations.MergeTopics(ctx, "s1", []string{"colas"}))

	conv, err := conversations.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"grafos", "pilas", "colas"}, []string(conv.Temas))
}

func TestSummaryCadence(t *testing.T) {
	conversations := newFakeConversationRepo()
	messages := &fakeMessageRepo{}
	client := &fakeLLM{generate: func(prompt string) (string, error) {
		if strings.Contains(prompt, "resumen conciso") {
			return "Se discutieron estructuras de datos.", nil
		}
		return "Estructuras de datos", nil
	}}
	summarizer := newTestSummarizer(conversations, messages, client)

	expected := map[int]int{
		1: 0, 2: 0, 3: 0, 4: 0,
		5: 1,
		6: 1, 7: 1, 8: 1, 9: 1,
		10: 2,
	}

	for turn := 1; turn <= 10; turn++ {
		commitTurn(t, summarizer, messages, "s1", "mensaje")
		assert.Equalf(t, expected[turn], conversations.summaryCallCount(),
			"unexpected summary count after turn %d", turn)
	}

	conv, err := conversations.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, conv.Resumen)
	assert.Equal(t, "Se discutieron estructuras de datos.", *conv.Resumen)
}

func TestSummaryUsesRecentWindowChronologically(t *testing.T) {
	conversations := newFakeConversationRepo()
	messages := &fakeMessageRepo{}
	var summaryPrompt string
	client := &fakeLLM{generate: func(prompt string) (string, error) {
		if strings.Contains(prompt, "resumen conciso") {
			summaryPrompt = prompt
		}
		return "ok", nil
	}}
	summarizer := newTestSummarizer(conversations, messages, client)

	for turn := 1; turn <= 5; turn++ {
		mensaje := []string{"uno", "dos", "tres", "cuatro", "cinco"}[turn-1]
		commitTurn(t, summarizer, messages, "s1", mensaje)
	}

	require.NotEmpty(t, summaryPrompt)
	// Window of the last 5 turns, oldest first
	assert.Less(t, strings.Index(summaryPrompt, "uno"), strings.Index(summaryPrompt, "cinco"))
}

func TestSummarizerMergesTurnTopics(t *testing.T) {
	conversations := newFakeConversationRepo()
	messages := &fakeMessageRepo{}
	summarizer := newTestSummarizer(conversations, messages, &fakeLLM{})

	summarizer.OnTurnCommitted(context.Background(), CommittedTurn{
		SessionID: "s1",
		Mensaje:   "hola",
		Temas:     []string{"redes"},
	})
	summarizer.OnTurnCommitted(context.Background(), CommittedTurn{
		SessionID: "s1",
		Mensaje:   "hola de nuevo",
		Temas:     []string{"redes", "sockets"},
	})

	conv, err := conversations.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"redes", "sockets"}, []string(conv.Temas))
}

func TestSummarizerSwallowsModelFailures(t *testing.T) {
	conversations := newFakeConversationRepo()
	messages := &fakeMessageRepo{}
	client := &fakeLLM{generate: func(string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	summarizer := newTestSummarizer(conversations, messages, client)

	// Must not panic or propagate; the conversation is still tracked
	commitTurn(t, summarizer, messages, "s1", "hola")

	conv, err := conversations.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Nil(t, conv.Titulo)
	assert.Nil(t, conv.Resumen)
}
