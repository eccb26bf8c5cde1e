package server

import (
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries the refresh token to exchange.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login handles user authentication and returns an access/refresh pair.
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	pair, err := s.sessions.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		// A missing account and a wrong password both read as bad
		// credentials so the endpoint cannot be used to probe emails.
		if models.HasCode(err, models.CodeNotFound) {
			err = models.NewInvalidCredentialsError()
		}
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(pair)
}

// RefreshTokens exchanges a valid refresh token for a brand-new pair.
func (s *Server) RefreshTokens(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.RefreshToken == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Refresh token is required"))
	}

	pair, err := s.sessions.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(pair)
}

// GetCurrentUser returns the authenticated user's account.
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	return c.JSON(s.currentUser(c))
}

// optionalUser resolves the bearer token when one is present. Public
// read endpoints use it to widen visibility for owners and superusers;
// a missing or invalid token just means an anonymous reader.
func (s *Server) optionalUser(c *fiber.Ctx) *models.User {
	authHeader := c.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil
	}

	claims, err := s.codec.Decode(parts[1], auth.TokenTypeAccess)
	if err != nil {
		return nil
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil
	}
	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil || !user.IsActive {
		return nil
	}
	return user
}
