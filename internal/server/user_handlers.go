package server

import (
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RegisterRequest represents the user registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
}

// UpdateUserRequest represents the profile update request body. Pointer
// fields distinguish "not sent" from "set to empty".
type UpdateUserRequest struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	Password       *string `json:"password"`
	FullName       *string `json:"full_name"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
}

// RegisterUser handles new account creation.
func (s *Server) RegisterUser(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email and password are required"))
	}
	if len(req.Password) < 8 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Password must be at least 8 characters"))
	}
	if !strings.Contains(req.Email, "@") {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid email address"))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Bio:          req.Bio,
		IsActive:     true,
	}
	if err := s.userRepo.Create(c.UserContext(), user); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetAllUsers lists accounts. Superusers only.
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	if err := auth.RequireSuperuser(s.currentUser(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}

	limit, offset := pagination(c)
	users, err := s.userRepo.List(c.UserContext(), limit, offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// GetMyProfile returns the authenticated user's own account.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	return c.JSON(s.currentUser(c))
}

// UpdateMyProfile updates the authenticated user's own account.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	actor := s.currentUser(c)
	return s.applyUserUpdate(c, actor, actor.ID)
}

// GetUserProfile returns an account by ID.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	user, err := s.userRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UpdateUser updates an account by ID. Owner or superuser only.
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	actor := s.currentUser(c)
	if err := auth.RequireOwnerOrSuperuser(actor, id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return s.applyUserUpdate(c, actor, id)
}

// DeleteUser deactivates an account. Owner or superuser only. The row
// stays so authored posts and comments keep a valid owner.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := auth.RequireOwnerOrSuperuser(s.currentUser(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := s.userRepo.SoftDelete(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) applyUserUpdate(c *fiber.Ctx, actor *models.User, targetID uuid.UUID) error {
	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByID(c.UserContext(), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Username cannot be empty"))
		}
		if username != user.Username {
			existing, err := s.userRepo.GetByUsername(c.UserContext(), username)
			if err != nil {
				return models.RespondWithAppError(c, err)
			}
			if existing != nil {
				return models.RespondWithAppError(c, models.NewConflictError("Username already taken"))
			}
			user.Username = username
		}
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if !strings.Contains(email, "@") {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid email address"))
		}
		if email != user.Email {
			existing, err := s.userRepo.GetByEmail(c.UserContext(), email)
			if err != nil {
				return models.RespondWithAppError(c, err)
			}
			if existing != nil {
				return models.RespondWithAppError(c, models.NewConflictError("Email already registered"))
			}
			user.Email = email
		}
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Password must be at least 8 characters"))
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return models.RespondWithAppError(c, models.NewInternalError(err))
		}
		user.PasswordHash = hash
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = *req.ProfilePicture
	}

	if err := s.userRepo.Update(c.UserContext(), user); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}
