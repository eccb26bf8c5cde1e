package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaFilter narrows media listings to a single owner.
type MediaFilter struct {
	PostID *uuid.UUID
	UserID *uuid.UUID
}

// MediaRepository defines the interface for media metadata operations
type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	List(ctx context.Context, filter MediaFilter, limit, offset int) ([]models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, media *models.Media) error {
	// A media item belongs to exactly one of a user or a post.
	if (media.PostID == nil) == (media.UserID == nil) {
		return models.NewConflictError("Media must belong to exactly one of a user or a post")
	}
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *mediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var media models.Media
	if err := r.db.WithContext(ctx).First(&media, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Media", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &media, nil
}

func (r *mediaRepository) List(ctx context.Context, filter MediaFilter, limit, offset int) ([]models.Media, error) {
	query := r.db.WithContext(ctx).Model(&models.Media{})
	if filter.PostID != nil {
		query = query.Where("post_id = ?", *filter.PostID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	var media []models.Media
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&media).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return media, nil
}

func (r *mediaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Media{}, "id = ?", id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Media", id)
	}
	return nil
}
