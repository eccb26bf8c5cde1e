package auth

import (
	"inkwell/internal/models"

	"github.com/google/uuid"
)

// IsOwnerOrSuperuser reports whether actor may mutate a resource owned
// by ownerID.
func IsOwnerOrSuperuser(actor *models.User, ownerID uuid.UUID) bool {
	return actor.ID == ownerID || actor.IsSuperuser
}

// RequireOwnerOrSuperuser allows the resource owner and superusers;
// everyone else gets Forbidden. Every mutating endpoint goes through
// this single check instead of re-deriving the boolean per resource.
func RequireOwnerOrSuperuser(actor *models.User, ownerID uuid.UUID) error {
	if !IsOwnerOrSuperuser(actor, ownerID) {
		return models.NewForbiddenError("Not enough permissions")
	}
	return nil
}

// RequireSuperuser allows superusers only.
func RequireSuperuser(actor *models.User) error {
	if !actor.IsSuperuser {
		return models.NewForbiddenError("Superuser privileges required")
	}
	return nil
}
