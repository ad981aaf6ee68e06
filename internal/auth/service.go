package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

var (
	// ErrInvalidCredentials is returned when login fails
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when the matricula is already registered
	ErrUserExists = errors.New("user already exists")
)

// Service handles user registration and login
type Service struct {
	users repository.UserRepository
	jwt   *JWTService
}

// NewService creates an auth service
func NewService(users repository.UserRepository, jwt *JWTService) *Service {
	return &Service{users: users, jwt: jwt}
}

// RegisterInput carries the fields needed to create an account
type RegisterInput struct {
	Matricula       string `json:"matricula"`
	Nombre          string `json:"nombre"`
	ApellidoPaterno string `json:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno"`
	Contrasena      string `json:"contrasena"`
	Correo          string `json:"correo"`
	SemestreID      *int64 `json:"semestre_id,omitempty"`
}

// Register creates a new user with a hashed password
func (s *Service) Register(ctx context.Context, input RegisterInput) (*repository.User, error) {
	matricula := strings.ToLower(strings.TrimSpace(input.Matricula))

	existing, err := s.users.GetByMatricula(ctx, matricula)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(input.Contrasena)
	if err != nil {
		return nil, err
	}

	user := &repository.User{
		Matricula:       matricula,
		Nombre:          input.Nombre,
		ApellidoPaterno: input.ApellidoPaterno,
		ApellidoMaterno: input.ApellidoMaterno,
		ContrasenaHash:  hash,
		Correo:          input.Correo,
		SemestreID:      input.SemestreID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues an access token
func (s *Service) Login(ctx context.Context, matricula, contrasena string) (string, *repository.User, error) {
	user, err := s.users.GetByMatricula(ctx, matricula)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !CheckPassword(contrasena, user.ContrasenaHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.IssueToken(user.Matricula, user.Rol)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GetUser fetches a user by matricula; (nil, nil) when unknown
func (s *Service) GetUser(ctx context.Context, matricula string) (*repository.User, error) {
	return s.users.GetByMatricula(ctx, matricula)
}
