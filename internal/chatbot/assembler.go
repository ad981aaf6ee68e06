package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// Assembler produces the bounded textual context for a session: the
// rolling summary, if any, followed by the most recent exchanges in
// chronological order. The model receiving the text must see the
// conversation unfold forward in time.
type Assembler struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	recencyLimit  int
	log           *logrus.Logger
}

// NewAssembler creates a context assembler. recencyLimit bounds the
// number of prior exchanges included in the context.
func NewAssembler(conversations repository.ConversationRepository, messages repository.MessageRepository, recencyLimit int, log *logrus.Logger) *Assembler {
	if recencyLimit < 0 {
		recencyLimit = 0
	}
	return &Assembler{
		conversations: conversations,
		messages:      messages,
		recencyLimit:  recencyLimit,
		log:           log,
	}
}

// Assemble builds the context text and aggregate metadata for a
// session. An unknown session is a normal state, not an error.
func (a *Assembler) Assemble(ctx context.Context, sessionID string) (string, ContextMetadata, error) {
	metadata := ContextMetadata{
		TemasDetectados: []string{},
	}

	conversation, err := a.conversations.Get(ctx, sessionID)
	if err != nil {
		return "", metadata, err
	}
	if conversation == nil {
		return "", metadata, nil
	}

	messages, err := a.messages.History(ctx, sessionID, a.recencyLimit)
	if err != nil {
		return "", metadata, err
	}

	var contexto strings.Builder

	metadata.NumMensajes = len(messages)
	metadata.TieneConversacionPrevia = len(messages) > 0
	if conversation.Titulo != nil {
		metadata.TituloConversacion = *conversation.Titulo
	}
	metadata.Temas = []string(conversation.Temas)

	if conversation.Resumen != nil && *conversation.Resumen != "" {
		contexto.WriteString(fmt.Sprintf(summaryContextPrefix, *conversation.Resumen))
	}

	seen := make(map[string]bool)
	for _, message := range messages {
		contexto.WriteString(fmt.Sprintf(exchangeBlock, message.Mensaje, message.Respuesta))

		// Malformed stored metadata is skipped, never surfaced
		if len(message.Metadatos) == 0 {
			continue
		}
		var turnMeta ExtractedMetadata
		if err := json.Unmarshal(message.Metadatos, &turnMeta); err != nil {
			a.log.WithField("message_id", message.ID).Debug("skipping malformed message metadata")
			continue
		}
		for _, tema := range turnMeta.TemasDetectados {
			if tema == "" || seen[tema] {
				continue
			}
			seen[tema] = true
			metadata.TemasDetectados = append(metadata.TemasDetectados, tema)
		}
	}

	return contexto.String(), metadata, nil
}
