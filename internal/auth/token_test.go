package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret-key", 15*time.Minute, 720*time.Hour)
	userID := uuid.New()

	tests := []struct {
		name     string
		issue    func(uuid.UUID) (string, error)
		expected TokenType
	}{
		{"Access token", codec.IssueAccess, TokenTypeAccess},
		{"Refresh token", codec.IssueRefresh, TokenTypeRefresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.issue(userID)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := codec.Decode(token, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, string(tt.expected), claims.Type)

			decoded, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, userID, decoded)
		})
	}
}

func TestTokenCodecTypeMismatch(t *testing.T) {
	codec := NewTokenCodec("test-secret-key", 15*time.Minute, 720*time.Hour)
	userID := uuid.New()

	access, err := codec.IssueAccess(userID)
	require.NoError(t, err)
	refresh, err := codec.IssueRefresh(userID)
	require.NoError(t, err)

	_, err = codec.Decode(access, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = codec.Decode(refresh, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTokenCodecExpired(t *testing.T) {
	codec := NewTokenCodec("test-secret-key", -1*time.Minute, -1*time.Minute)

	token, err := codec.IssueAccess(uuid.New())
	require.NoError(t, err)

	_, err = codec.Decode(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenCodecInvalid(t *testing.T) {
	codec := NewTokenCodec("test-secret-key", 15*time.Minute, 720*time.Hour)
	other := NewTokenCodec("different-secret", 15*time.Minute, 720*time.Hour)
	userID := uuid.New()

	valid, err := codec.IssueAccess(userID)
	require.NoError(t, err)
	foreign, err := other.IssueAccess(userID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Garbage", "not.a.token"},
		{"Empty", ""},
		{"Tampered payload", valid[:len(valid)-5] + "XXXXX"},
		{"Wrong secret", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token, TokenTypeAccess)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestClaimsUserIDInvalidSubject(t *testing.T) {
	claims := &Claims{}
	claims.Subject = "not-a-uuid"

	_, err := claims.UserID()
	assert.Error(t, err)
}
