package auth

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserFinder is an in-memory UserFinder for session tests.
type fakeUserFinder struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserFinder) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return user, nil
}

func (f *fakeUserFinder) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func newSessionFixture(t *testing.T) (*SessionIssuer, *TokenCodec, *models.User) {
	t.Helper()

	hash, err := HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}

	codec := NewTokenCodec("test-secret-key", 15*time.Minute, 720*time.Hour)
	finder := &fakeUserFinder{users: map[uuid.UUID]*models.User{user.ID: user}}
	return NewSessionIssuer(finder, codec), codec, user
}

func TestSessionLogin(t *testing.T) {
	issuer, codec, user := newSessionFixture(t)
	ctx := context.Background()

	t.Run("Valid credentials", func(t *testing.T) {
		pair, err := issuer.Login(ctx, user.Email, "password123")
		require.NoError(t, err)
		assert.Equal(t, "bearer", pair.TokenType)

		claims, err := codec.Decode(pair.AccessToken, TokenTypeAccess)
		require.NoError(t, err)
		decoded, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, user.ID, decoded)

		_, err = codec.Decode(pair.RefreshToken, TokenTypeRefresh)
		assert.NoError(t, err)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := issuer.Login(ctx, user.Email, "wrong-password")
		assert.True(t, models.HasCode(err, models.CodeInvalidCredentials))
	})

	t.Run("Unknown email", func(t *testing.T) {
		_, err := issuer.Login(ctx, "nobody@example.com", "password123")
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestSessionRefresh(t *testing.T) {
	issuer, codec, user := newSessionFixture(t)
	ctx := context.Background()

	t.Run("Valid refresh returns a fresh pair", func(t *testing.T) {
		pair, err := issuer.Login(ctx, user.Email, "password123")
		require.NoError(t, err)

		renewed, err := issuer.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, renewed.AccessToken)
		assert.NotEmpty(t, renewed.RefreshToken)

		// The new access token gets its own lifetime, not a remainder
		// of the refresh token's.
		claims, err := codec.Decode(renewed.AccessToken, TokenTypeAccess)
		require.NoError(t, err)
		expiry := claims.ExpiresAt.Time
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiry, time.Minute)
	})

	t.Run("Access token rejected as refresh", func(t *testing.T) {
		access, err := codec.IssueAccess(user.ID)
		require.NoError(t, err)

		_, err = issuer.Refresh(ctx, access)
		assert.True(t, models.HasCode(err, models.CodeUnauthorized))
	})

	t.Run("Expired refresh token", func(t *testing.T) {
		expired := NewTokenCodec("test-secret-key", -time.Minute, -time.Minute)
		token, err := expired.IssueRefresh(user.ID)
		require.NoError(t, err)

		_, err = issuer.Refresh(ctx, token)
		assert.True(t, models.HasCode(err, models.CodeUnauthorized))
	})

	t.Run("Deleted user", func(t *testing.T) {
		ghost := NewTokenCodec("test-secret-key", 15*time.Minute, 720*time.Hour)
		token, err := ghost.IssueRefresh(uuid.New())
		require.NoError(t, err)

		_, err = issuer.Refresh(ctx, token)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("Deactivated user", func(t *testing.T) {
		pair, err := issuer.Login(ctx, user.Email, "password123")
		require.NoError(t, err)

		user.IsActive = false
		defer func() { user.IsActive = true }()

		_, err = issuer.Refresh(ctx, pair.RefreshToken)
		assert.True(t, models.HasCode(err, models.CodeInactive))
	})
}
