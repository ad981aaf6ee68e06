package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/sysmentor/sysmentor-backend/internal/chatbot"
	"github.com/sysmentor/sysmentor-backend/internal/llm"
	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// ChatService is the contract the chat handlers need; it lets tests
// substitute a fake implementation.
type ChatService interface {
	SubmitTurn(ctx context.Context, req chatbot.TurnRequest) (*chatbot.TurnResult, error)
	UserExists(ctx context.Context, matricula string) (bool, error)
	ListConversations(ctx context.Context, matricula string, skip, limit int) ([]*repository.Conversation, error)
	GetConversation(ctx context.Context, sessionID string) (*chatbot.ConversationWithMessages, error)
	ListMessages(ctx context.Context, filter repository.MessageFilter) ([]repository.Message, error)
	GetMessage(ctx context.Context, id int64) (*repository.Message, error)
	DeleteMessage(ctx context.Context, id int64) error
}

// Compile-time check that the real service satisfies the contract
var _ ChatService = (*chatbot.Service)(nil)

// Conversar handles a chat turn: it validates the matricula when one is
// given, runs the turn, and returns the stored message with its
// metadata.
func Conversar(svc ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req chatbot.TurnRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if req.Mensaje == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "mensaje is required",
			})
		}

		if req.Matricula != "" {
			exists, err := svc.UserExists(c.Context(), req.Matricula)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			if !exists {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Usuario no encontrado",
				})
			}
		}

		result, err := svc.SubmitTurn(c.Context(), req)
		if err != nil {
			if errors.Is(err, llm.ErrUpstream) {
				logrus.WithError(err).Error("chat turn failed upstream")
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(result)
	}
}

// GetConversaciones lists conversations, optionally filtered by matricula
func GetConversaciones(svc ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matricula := c.Query("matricula")
		skip := c.QueryInt("skip", 0)
		limit := c.QueryInt("limit", 20)

		conversations, err := svc.ListConversations(c.Context(), matricula, skip, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(conversations)
	}
}

// GetConversacion returns one conversation with its full message history
func GetConversacion(svc ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params("session_id")

		conversation, err := svc.GetConversation(c.Context(), sessionID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if conversation == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Conversación no encontrada",
			})
		}

		return c.JSON(conversation)
	}
}

// ListMensajes lists chatbot messages, optionally filtered
func ListMensajes(svc ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := repository.MessageFilter{
			Matricula: c.Query("matricula"),
			SessionID: c.Query("session_id"),
			Skip:      c.QueryInt("skip", 0),
			Limit:     c.QueryInt("limit", 100),
		}

		messages, err := svc.ListMessages(c.Context(), filter)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(messages)
	}
}

// GetMensaje returns a single chatbot message by id
func GetMensaje(svc ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid message id",
			})
		}

		message, err := svc.GetMessage(c.Context(), id)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if message == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Mensaje no encontrado",
			})
		}

		return c.JSON(message)
	}
}

// DeleteMensaje removes a chatbot message (administrative)
func DeleteMensaje(svc ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid message id",
			})
		}

		message, err := svc.GetMessage(c.Context(), id)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if message == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Mensaje no encontrado",
			})
		}

		if err := svc.DeleteMessage(c.Context(), id); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
