package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sysmentor/sysmentor-backend/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

// Create registers a new user. Matriculas are stored lowercased.
func (r *UserRepository) Create(ctx context.Context, user *repository.User) error {
	user.Matricula = strings.ToLower(user.Matricula)
	user.FechaRegistro = time.Now()
	if user.Rol == "" {
		user.Rol = "estudiante"
	}

	query := `
		INSERT INTO usuario (matricula, nombre, apellido_paterno, apellido_materno,
			contrasena_hash, rol, fecha_registro, correo, semestre_id)
		VALUES (:matricula, :nombre, :apellido_paterno, :apellido_materno,
			:contrasena_hash, :rol, :fecha_registro, :correo, :semestre_id)
		RETURNING id
	`

	rows, err := r.db.NamedQueryContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&user.ID); err != nil {
			return fmt.Errorf("failed to scan user id: %w", err)
		}
	}

	return nil
}

// GetByMatricula retrieves a user by matricula
func (r *UserRepository) GetByMatricula(ctx context.Context, matricula string) (*repository.User, error) {
	var user repository.User
	query := `
		SELECT id, matricula, nombre, apellido_paterno, apellido_materno,
			contrasena_hash, rol, fecha_registro, correo, semestre_id
		FROM usuario
		WHERE matricula = $1
	`

	err := r.db.GetContext(ctx, &user, query, strings.ToLower(matricula))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Profile returns the student data used to personalize the assistant.
// Unknown matriculas yield (nil, nil).
func (r *UserRepository) Profile(ctx context.Context, matricula string) (*repository.StudentProfile, error) {
	var row struct {
		Nombre          string         `db:"nombre"`
		ApellidoPaterno string         `db:"apellido_paterno"`
		Semestre        sql.NullString `db:"semestre"`
	}

	query := `
		SELECT u.nombre, u.apellido_paterno, s.nombre AS semestre
		FROM usuario u
		LEFT JOIN semestre s ON s.id = u.semestre_id
		WHERE u.matricula = $1
	`

	err := r.db.GetContext(ctx, &row, query, strings.ToLower(matricula))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}

	return &repository.StudentProfile{
		Nombre:   row.Nombre + " " + row.ApellidoPaterno,
		Semestre: row.Semestre.String,
	}, nil
}
