package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sysmentor/sysmentor-backend/internal/llm"
	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// CommittedTurn describes a turn that has been durably stored
type CommittedTurn struct {
	SessionID string
	Matricula *string
	Mensaje   string
	Respuesta string
	Temas     []string
}

// Summarizer maintains the per-session conversation record after each
// committed turn: activity timestamp always, a generated title on the
// first turn, a regenerated rolling summary every cadence turns, and
// the merged topic list. It runs off the request path; nothing here may
// fail the user-visible reply, so every error is logged and dropped.
type Summarizer struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	client        llm.Client
	prompts       Prompts
	cadence       int
	log           *logrus.Logger
}

// NewSummarizer creates a summarization trigger. cadence is the number
// of turns between summary regenerations.
func NewSummarizer(conversations repository.ConversationRepository, messages repository.MessageRepository, client llm.Client, prompts Prompts, cadence int, log *logrus.Logger) *Summarizer {
	if cadence <= 0 {
		cadence = 5
	}
	return &Summarizer{
		conversations: conversations,
		messages:      messages,
		client:        client,
		prompts:       prompts,
		cadence:       cadence,
		log:           log,
	}
}

// OnTurnCommitted updates the conversation record for a stored turn
func (s *Summarizer) OnTurnCommitted(ctx context.Context, turn CommittedTurn) {
	log := s.log.WithField("session_id", turn.SessionID)

	if err := s.conversations.UpsertActivity(ctx, turn.SessionID, turn.Matricula); err != nil {
		log.WithError(err).Error("failed to upsert conversation activity")
		return
	}

	if len(turn.Temas) > 0 {
		if err := s.conversations.MergeTopics(ctx, turn.SessionID, turn.Temas); err != nil {
			log.WithError(err).Warn("failed to merge conversation topics")
		}
	}

	conversation, err := s.conversations.Get(ctx, turn.SessionID)
	if err != nil || conversation == nil {
		log.WithError(err).Error("failed to load conversation after upsert")
		return
	}

	if conversation.Titulo == nil || *conversation.Titulo == "" {
		s.generateTitle(ctx, turn, log)
		return
	}

	s.maybeSummarize(ctx, turn.SessionID, log)
}

func (s *Summarizer) generateTitle(ctx context.Context, turn CommittedTurn, log *logrus.Entry) {
	titulo, err := s.client.Generate(ctx, fmt.Sprintf(s.prompts.Title, turn.Mensaje))
	if err != nil {
		log.WithError(err).Warn("title generation failed")
		return
	}

	titulo = strings.TrimSpace(titulo)
	if titulo == "" {
		return
	}

	if err := s.conversations.FinalizeTitle(ctx, turn.SessionID, titulo); err != nil {
		log.WithError(err).Warn("failed to store conversation title")
	}
}

func (s *Summarizer) maybeSummarize(ctx context.Context, sessionID string, log *logrus.Entry) {
	count, err := s.messages.CountBySession(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("failed to count session messages")
		return
	}

	if count == 0 || count%s.cadence != 0 {
		return
	}

	recent, err := s.messages.History(ctx, sessionID, s.cadence)
	if err != nil {
		log.WithError(err).Warn("failed to load recent messages for summary")
		return
	}

	var transcript strings.Builder
	for _, message := range recent {
		transcript.WriteString(fmt.Sprintf("Usuario: %s\nChatbot: %s\n", message.Mensaje, message.Respuesta))
	}

	resumen, err := s.client.Generate(ctx, fmt.Sprintf(s.prompts.Summary, transcript.String()))
	if err != nil {
		log.WithError(err).Warn("summary generation failed")
		return
	}

	resumen = strings.TrimSpace(resumen)
	if resumen == "" {
		return
	}

	if err := s.conversations.UpdateSummary(ctx, sessionID, resumen); err != nil {
		log.WithError(err).Warn("failed to store conversation summary")
		return
	}

	log.WithField("message_count", count).Info("conversation summary refreshed")
}
