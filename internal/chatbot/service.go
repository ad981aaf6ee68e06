package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sysmentor/sysmentor-backend/internal/llm"
	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// TurnRequest is a single incoming chat turn
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Matricula string `json:"matricula"`
	Mensaje   string `json:"mensaje"`
}

// TurnResult is what a completed turn yields: the stored message row,
// the metadata recorded for it, and the context aggregate observed when
// the reply was generated.
type TurnResult struct {
	Message   *repository.Message `json:"message"`
	Respuesta string              `json:"respuesta"`
	Metadatos TurnMetadata        `json:"metadatos"`
	Contexto  ContextMetadata     `json:"contexto"`
}

// ConversationWithMessages is a conversation and its full history
type ConversationWithMessages struct {
	*repository.Conversation
	Mensajes []repository.Message `json:"mensajes"`
}

// Service orchestrates a chat turn end to end: metadata extraction,
// context assembly, reply generation, persistence and deferred
// conversation upkeep.
type Service struct {
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	users         repository.UserRepository
	client        llm.Client
	extractor     *Extractor
	assembler     *Assembler
	summarizer    *Summarizer
	dispatcher    *Dispatcher
	prompts       Prompts
	log           *logrus.Logger
}

// NewService wires the conversation subsystem. All collaborators are
// injected so tests can substitute fakes.
func NewService(
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
	users repository.UserRepository,
	client llm.Client,
	extractor *Extractor,
	assembler *Assembler,
	summarizer *Summarizer,
	dispatcher *Dispatcher,
	prompts Prompts,
	log *logrus.Logger,
) *Service {
	return &Service{
		messages:      messages,
		conversations: conversations,
		users:         users,
		client:        client,
		extractor:     extractor,
		assembler:     assembler,
		summarizer:    summarizer,
		dispatcher:    dispatcher,
		prompts:       prompts,
		log:           log,
	}
}

// SubmitTurn processes one chat turn. It returns once the reply is
// generated and the turn durably stored; title, summary and topic
// upkeep run afterwards in the background.
func (s *Service) SubmitTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	extracted, err := s.extractor.Extract(ctx, req.Mensaje)
	if err != nil {
		return nil, err
	}

	contextText, contextMeta, err := s.assembler.Assemble(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble context: %w", err)
	}

	prompt := s.buildPrompt(ctx, req, contextText, contextMeta)

	respuesta, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	respuesta = strings.TrimSpace(respuesta)

	turnMeta := TurnMetadata{
		ExtractedMetadata: extracted,
		LongitudRespuesta: len(respuesta),
		LongitudContexto:  len(contextText),
	}

	metadatos, err := json.Marshal(turnMeta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turn metadata: %w", err)
	}

	message := &repository.Message{
		SessionID: sessionID,
		Mensaje:   req.Mensaje,
		Respuesta: respuesta,
		Metadatos: metadatos,
	}
	if req.Matricula != "" {
		matricula := strings.ToLower(req.Matricula)
		message.Matricula = &matricula
	}
	if contextText != "" {
		message.Contexto = &contextText
	}

	if err := s.messages.Append(ctx, message); err != nil {
		return nil, err
	}

	turn := CommittedTurn{
		SessionID: sessionID,
		Matricula: message.Matricula,
		Mensaje:   req.Mensaje,
		Respuesta: respuesta,
		Temas:     extracted.TemasDetectados,
	}
	s.dispatcher.Enqueue(func(taskCtx context.Context) {
		s.summarizer.OnTurnCommitted(taskCtx, turn)
	})

	return &TurnResult{
		Message:   message,
		Respuesta: respuesta,
		Metadatos: turnMeta,
		Contexto:  contextMeta,
	}, nil
}

// buildPrompt composes the system directive, prior context and the new
// message into the final prompt. Profile lookup failures only degrade
// personalization.
func (s *Service) buildPrompt(ctx context.Context, req TurnRequest, contextText string, contextMeta ContextMetadata) string {
	var prompt strings.Builder
	prompt.WriteString(s.prompts.System)

	if req.Matricula != "" {
		profile, err := s.users.Profile(ctx, req.Matricula)
		if err != nil {
			s.log.WithError(err).Warn("failed to load student profile")
		} else if profile != nil {
			prompt.WriteString(fmt.Sprintf("\n\nEstás hablando con %s", profile.Nombre))
			if profile.Semestre != "" {
				prompt.WriteString(fmt.Sprintf(", quien está cursando el %s semestre", profile.Semestre))
			}
		}
	}

	if len(contextMeta.TemasDetectados) > 0 {
		prompt.WriteString(fmt.Sprintf("\n\nEsta conversación ha tratado sobre: %s",
			strings.Join(contextMeta.TemasDetectados, ", ")))
	}

	prompt.WriteString(defaultGuidelines)
	prompt.WriteString("\n\n")

	if contextText != "" {
		prompt.WriteString(contextText)
	}
	prompt.WriteString(fmt.Sprintf("Usuario: %s\nChatbot:", req.Mensaje))

	return prompt.String()
}

// UserExists reports whether a matricula belongs to a known user
func (s *Service) UserExists(ctx context.Context, matricula string) (bool, error) {
	user, err := s.users.GetByMatricula(ctx, matricula)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// ListConversations returns conversations ordered by recent activity
func (s *Service) ListConversations(ctx context.Context, matricula string, skip, limit int) ([]*repository.Conversation, error) {
	return s.conversations.List(ctx, matricula, skip, limit)
}

// GetConversation returns a conversation with its full ascending
// message history, or nil when the session is unknown.
func (s *Service) GetConversation(ctx context.Context, sessionID string) (*ConversationWithMessages, error) {
	conversation, err := s.conversations.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, nil
	}

	mensajes, err := s.messages.List(ctx, repository.MessageFilter{SessionID: sessionID})
	if err != nil {
		return nil, err
	}

	// List returns most recent first; the conversation view reads
	// forward in time.
	for i, j := 0, len(mensajes)-1; i < j; i, j = i+1, j-1 {
		mensajes[i], mensajes[j] = mensajes[j], mensajes[i]
	}

	return &ConversationWithMessages{
		Conversation: conversation,
		Mensajes:     mensajes,
	}, nil
}

// ListMessages returns messages matching the filter, most recent first
func (s *Service) ListMessages(ctx context.Context, filter repository.MessageFilter) ([]repository.Message, error) {
	return s.messages.List(ctx, filter)
}

// GetMessage returns a message by id, or nil when absent
func (s *Service) GetMessage(ctx context.Context, id int64) (*repository.Message, error) {
	return s.messages.Get(ctx, id)
}

// DeleteMessage removes a message (administrative operation)
func (s *Service) DeleteMessage(ctx context.Context, id int64) error {
	return s.messages.Delete(ctx, id)
}
