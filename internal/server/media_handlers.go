package server

import (
	"fmt"
	"path/filepath"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var allowedMediaTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// UploadMedia stores an uploaded file in the object store and records
// its metadata. The form field "file" carries the bytes; "post_id"
// attaches the file to a post, "user_id" to a profile (superusers may
// upload for other users), and with neither it belongs to the
// uploader's own profile. Exactly one owner, never both.
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("File is required"))
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !allowedMediaTypes[mimeType] {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported file type"))
	}

	actor := s.currentUser(c)
	media := &models.Media{
		FileName: fileHeader.Filename,
		MimeType: mimeType,
	}

	postRaw := c.FormValue("post_id")
	userRaw := c.FormValue("user_id")

	switch {
	case postRaw != "" && userRaw != "":
		return models.RespondWithAppError(c,
			models.NewConflictError("Media must belong to exactly one of a user or a post"))
	case postRaw != "":
		postID, err := uuid.Parse(postRaw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid post_id parameter"))
		}
		post, err := s.postRepo.GetByID(c.UserContext(), postID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if err := auth.RequireOwnerOrSuperuser(actor, post.AuthorID); err != nil {
			return models.RespondWithAppError(c, err)
		}
		media.PostID = &post.ID
	case userRaw != "":
		userID, err := uuid.Parse(userRaw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid user_id parameter"))
		}
		target, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if err := auth.RequireOwnerOrSuperuser(actor, target.ID); err != nil {
			return models.RespondWithAppError(c, err)
		}
		media.UserID = &target.ID
	default:
		media.UserID = &actor.ID
	}

	if s.objects == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fmt.Errorf("object storage unavailable")))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	defer file.Close()

	objectName := fmt.Sprintf("%s%s", uuid.New(), strings.ToLower(filepath.Ext(fileHeader.Filename)))
	path, err := s.objects.Upload(c.UserContext(), objectName, file, fileHeader.Size, mimeType)
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	media.FilePath = path

	if err := s.mediaRepo.Create(c.UserContext(), media); err != nil {
		// Metadata insert failed; drop the orphaned object.
		_ = s.objects.Remove(c.UserContext(), objectName)
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(media)
}

// GetMediaList lists media, filterable by post_id or user_id.
func (s *Server) GetMediaList(c *fiber.Ctx) error {
	postID, err := uuidQuery(c, "post_id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	userID, err := uuidQuery(c, "user_id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	limit, offset := pagination(c)
	media, err := s.mediaRepo.List(c.UserContext(), repository.MediaFilter{
		PostID: postID,
		UserID: userID,
	}, limit, offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(media)
}

// GetMedia returns one media record by ID.
func (s *Server) GetMedia(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	media, err := s.mediaRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(media)
}

// DeleteMedia removes the metadata row and the stored object. Only the
// owner (the uploader, or the post's author for post media) or a
// superuser may delete.
func (s *Server) DeleteMedia(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	media, err := s.mediaRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	ownerID, err := s.mediaOwner(c, media)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if err := auth.RequireOwnerOrSuperuser(s.currentUser(c), ownerID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := s.mediaRepo.Delete(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if s.objects != nil {
		// FilePath is "bucket/object"; strip the bucket prefix.
		if _, object, found := strings.Cut(media.FilePath, "/"); found {
			_ = s.objects.Remove(c.UserContext(), object)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) mediaOwner(c *fiber.Ctx, media *models.Media) (uuid.UUID, error) {
	if media.UserID != nil {
		return *media.UserID, nil
	}
	post, err := s.postRepo.GetByID(c.UserContext(), *media.PostID)
	if err != nil {
		return uuid.Nil, err
	}
	return post.AuthorID, nil
}
