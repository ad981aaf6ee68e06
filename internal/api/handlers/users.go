package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sysmentor/sysmentor-backend/internal/auth"
)

// Register creates a new user account
func Register(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input auth.RegisterInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if input.Matricula == "" || input.Contrasena == "" || input.Correo == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "matricula, contrasena and correo are required",
			})
		}

		user, err := svc.Register(c.Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserExists):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Usuario ya registrado",
				})
			case errors.Is(err, auth.ErrPasswordTooShort):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": err.Error(),
				})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
		}

		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

// Login verifies credentials and returns an access token
func Login(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Matricula  string `json:"matricula"`
			Contrasena string `json:"contrasena"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		token, user, err := svc.Login(c.Context(), req.Matricula, req.Contrasena)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Credenciales inválidas",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"access_token": token,
			"token_type":   "bearer",
			"user":         user,
		})
	}
}

// GetUsuario returns a user by matricula
func GetUsuario(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := svc.GetUser(c.Context(), c.Params("matricula"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if user == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Usuario no encontrado",
			})
		}

		return c.JSON(user)
	}
}
