package auth

import (
	"context"

	"inkwell/internal/models"

	"github.com/google/uuid"
)

// UserFinder is the slice of the user repository the session issuer needs.
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SessionIssuer orchestrates login and token refresh. Tokens are
// stateless: there is no server-side revocation list, so a leaked
// refresh token stays valid until its natural expiry even after a new
// pair is issued. Refresh tokens are single-use by convention only.
type SessionIssuer struct {
	users UserFinder
	codec *TokenCodec
}

// NewSessionIssuer creates a session issuer over the given user store and codec.
func NewSessionIssuer(users UserFinder, codec *TokenCodec) *SessionIssuer {
	return &SessionIssuer{users: users, codec: codec}
}

// Login verifies the credentials and mints an access/refresh pair.
// Neither login nor refresh mutates any stored state.
func (s *SessionIssuer) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, models.NewInvalidCredentialsError()
	}

	return s.mintPair(user.ID)
}

// Refresh verifies a refresh token and mints a brand-new pair with
// fresh expiries. The presented token must be of type refresh; the user
// must still exist and be active.
func (s *SessionIssuer) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired refresh token")
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid refresh token subject")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewInactiveUserError()
	}

	return s.mintPair(user.ID)
}

func (s *SessionIssuer) mintPair(userID uuid.UUID) (*TokenPair, error) {
	access, err := s.codec.IssueAccess(userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.codec.IssueRefresh(userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}
