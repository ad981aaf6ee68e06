package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sysmentor/sysmentor-backend/internal/api/handlers"
	"github.com/sysmentor/sysmentor-backend/internal/api/middleware"
	"github.com/sysmentor/sysmentor-backend/internal/auth"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, chat handlers.ChatService, authService *auth.Service, jwtService *auth.JWTService) {
	api := app.Group("/api")

	// Chatbot
	mensajes := api.Group("/mensajes")
	mensajes.Post("/conversar", middleware.ChatRateLimit(), handlers.Conversar(chat))
	mensajes.Get("/conversaciones", handlers.GetConversaciones(chat))
	mensajes.Get("/conversaciones/:session_id", handlers.GetConversacion(chat))
	mensajes.Get("/", handlers.ListMensajes(chat))
	mensajes.Get("/:id", handlers.GetMensaje(chat))
	mensajes.Delete("/:id",
		middleware.AuthRequired(jwtService),
		middleware.RequireRole("admin"),
		handlers.DeleteMensaje(chat))

	// Usuarios
	usuarios := api.Group("/usuarios")
	usuarios.Post("/", middleware.AuthRateLimit(), handlers.Register(authService))
	usuarios.Post("/login", middleware.AuthRateLimit(), handlers.Login(authService))
	usuarios.Get("/:matricula", handlers.GetUsuario(authService))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
}
