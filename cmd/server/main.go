package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/sysmentor/sysmentor-backend/internal/api"
	"github.com/sysmentor/sysmentor-backend/internal/auth"
	"github.com/sysmentor/sysmentor-backend/internal/chatbot"
	"github.com/sysmentor/sysmentor-backend/internal/config"
	"github.com/sysmentor/sysmentor-backend/internal/database"
	"github.com/sysmentor/sysmentor-backend/internal/llm"
	"github.com/sysmentor/sysmentor-backend/internal/repository/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// External model client
	llmClient, err := llm.NewOpenAIClient(cfg.LLM)
	if err != nil {
		log.WithError(err).Fatal("Failed to create LLM client")
	}

	// Repositories
	messageRepo := postgres.NewMessageRepository(db.DB)
	conversationRepo := postgres.NewConversationRepository(db.DB)
	userRepo := postgres.NewUserRepository(db.DB)

	// Auth
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "change-me-in-production"
		log.Warn("Using default JWT secret. Set SYSMENTOR_JWT_SECRET in production!")
	}
	jwtService := auth.NewJWTService(jwtSecret, "sysmentor")
	authService := auth.NewService(userRepo, jwtService)

	// Conversation subsystem
	prompts := chatbot.ResolvePrompts(cfg.Chatbot)
	dispatcher := chatbot.NewDispatcher(cfg.Chatbot.QueueSize, cfg.Chatbot.QueueWorkers, log)
	extractor := chatbot.NewExtractor(llmClient, prompts.Analysis, log)
	assembler := chatbot.NewAssembler(conversationRepo, messageRepo, cfg.Chatbot.RecencyLimit, log)
	summarizer := chatbot.NewSummarizer(conversationRepo, messageRepo, llmClient, prompts, cfg.Chatbot.SummaryCadence, log)
	chatService := chatbot.NewService(messageRepo, conversationRepo, userRepo, llmClient,
		extractor, assembler, summarizer, dispatcher, prompts, log)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SysMentor API",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     getOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	api.SetupRoutes(app, chatService, authService, jwtService)

	// Shut down cleanly so queued conversation upkeep can finish
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dispatcher.Stop(ctx); err != nil {
			log.WithError(err).Warn("Background queue did not drain in time")
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("SysMentor backend starting")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func getOrigins() string {
	origins := os.Getenv("SYSMENTOR_CORS_ORIGINS")
	if origins == "" {
		return "http://localhost:3000"
	}
	return origins
}
