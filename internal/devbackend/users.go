package devbackend

// Package devbackend is a development stand-in for the RepairLink backend's
// auth endpoints. It exists so the gateway can run end to end locally; the
// production backend is a separate system.

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/repairlink/ui-gateway/internal/errors"
)

// User is an account row in the dev backend.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Surname      string
	PhoneNumber  string
	Roles        []string
	Locked       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository persists dev backend accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// PGUserRepository stores users in PostgreSQL.
type PGUserRepository struct {
	pool *pgxpool.Pool
}

var _ UserRepository = (*PGUserRepository)(nil)

// NewPGUserRepository constructs a repository.
func NewPGUserRepository(pool *pgxpool.Pool) *PGUserRepository {
	return &PGUserRepository{pool: pool}
}

func (r *PGUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
INSERT INTO users (id, email, password_hash, name, surname, phone_number, roles, locked, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Surname,
		user.PhoneNumber,
		user.Roles,
		user.Locked,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
SELECT id, email, password_hash, name, surname, phone_number, roles, locked, created_at, updated_at
FROM users WHERE email = $1
`
	return r.scanOne(ctx, query, NormalizeEmail(email))
}

func (r *PGUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const query = `
SELECT id, email, password_hash, name, surname, phone_number, roles, locked, created_at, updated_at
FROM users WHERE id = $1
`
	return r.scanOne(ctx, query, id)
}

func (r *PGUserRepository) scanOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Surname,
		&u.PhoneNumber,
		&u.Roles,
		&u.Locked,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &u, nil
}
