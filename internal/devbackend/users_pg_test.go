package devbackend

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/repairlink/ui-gateway/internal/errors"
	"github.com/repairlink/ui-gateway/internal/testutil"
)

func newPGUser(email string) *User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnota",
		Name:         "Ana",
		Surname:      "Petrova",
		PhoneNumber:  "+359888123456",
		Roles:        []string{"ROLE_CUSTOMER", "ROLE_VENDOR"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPGUserRepository_CreateAndGet(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repo := NewPGUserRepository(pool)
	ctx := t.Context()

	user := newPGUser("pg@example.com")
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "PG@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.Roles, byEmail.Roles)
	assert.False(t, byEmail.Locked)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
}

func TestPGUserRepository_DuplicateEmail(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repo := NewPGUserRepository(pool)
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, newPGUser("dup@example.com")))

	err := repo.Create(ctx, newPGUser("dup@example.com"))
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestPGUserRepository_NotFound(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repo := NewPGUserRepository(pool)
	ctx := t.Context()

	_, err := repo.GetByEmail(ctx, "missing@example.com")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
