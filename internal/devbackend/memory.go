package devbackend

import (
	"context"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/repairlink/ui-gateway/internal/errors"
)

// MemoryUserRepository is an in-memory UserRepository for tests and
// throwaway local runs.
type MemoryUserRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*User
	byEmail map[string]*User
}

var _ UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository constructs an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]*User),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return apperrors.Conflict("email already registered")
	}
	u := *user
	r.byID[u.ID] = &u
	r.byEmail[u.Email] = &u
	return nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	copied := *u
	return &copied, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	copied := *u
	return &copied, nil
}
