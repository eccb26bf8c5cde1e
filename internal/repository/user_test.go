package repository

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateConflicts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, repo.Create(ctx, first))

	tests := []struct {
		name string
		user models.User
	}{
		{"Duplicate email", models.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"}},
		{"Duplicate username", models.User{Username: "alice", Email: "alice2@example.com", PasswordHash: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, &tt.user)
			assert.True(t, models.HasCode(err, models.CodeConflict))
		})
	}
}

func TestUserLookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")

	found, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, found.Username)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	// Absent email and username lookups return nil without an error.
	found, err = repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestUserSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user, "kept-post")

	require.NoError(t, repo.SoftDelete(ctx, user.ID))

	// The account is deactivated, not removed.
	found, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, found.IsActive)

	// Authored content keeps a valid owner.
	var kept models.Post
	require.NoError(t, db.First(&kept, "id = ?", post.ID).Error)
	assert.Equal(t, user.ID, kept.AuthorID)

	err = repo.SoftDelete(ctx, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
