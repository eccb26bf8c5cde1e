package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates access tokens from refresh tokens. A token of
// one type is never accepted where the other is required.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	// ErrInvalidToken indicates a token that failed to parse or whose
	// signature did not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a token past its embedded expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenType indicates a valid token presented where the
	// other token type is required.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims is the signed token payload. The wire fields are sub (user ID
// as string), exp (epoch seconds) and type ("access" or "refresh").
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim into a user ID.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, nil
}

// TokenCodec mints and verifies self-contained HS256 tokens. The secret
// and lifetimes are process-wide configuration, fixed for the process
// lifetime.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec creates a codec signing with the given secret.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess mints a short-lived access token for the given user.
func (tc *TokenCodec) IssueAccess(userID uuid.UUID) (string, error) {
	return tc.issue(userID, TokenTypeAccess, tc.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the given user.
func (tc *TokenCodec) IssueRefresh(userID uuid.UUID) (string, error) {
	return tc.issue(userID, TokenTypeRefresh, tc.refreshTTL)
}

func (tc *TokenCodec) issue(userID uuid.UUID, tokenType TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Type: string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token signature and expiry and checks that the
// embedded type matches expected. No claim is inspected before the
// signature verifies. Returns ErrInvalidToken, ErrTokenExpired or
// ErrWrongTokenType.
func (tc *TokenCodec) Decode(tokenString string, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tc.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != string(expected) {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
