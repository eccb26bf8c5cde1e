package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultReplyDepth bounds eager tree loading. Each level costs one
// query, so an unbounded walk over a deep thread would issue a query
// per nesting level; three levels cover realistic discussions and
// anything deeper is fetched on demand via ListReplies.
const DefaultReplyDepth = 3

// CommentRepository manages the per-post comment forest: creation with
// parent validation, bounded-depth tree reads, and transactional
// subtree deletes.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	GetTree(ctx context.Context, id uuid.UUID, maxDepth int) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uuid.UUID, offset, limit, maxDepth int) ([]models.Comment, error)
	ListReplies(ctx context.Context, id uuid.UUID, offset, limit int) ([]models.Comment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Comment, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a comment. A reply must target an existing parent on
// the same post; both checks run inside the insert transaction so a
// parent deleted concurrently fails the create instead of orphaning it.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if comment.ParentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, "id = ?", *comment.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.NewConflictError("Parent comment does not exist")
				}
				return models.NewInternalError(err)
			}
			if parent.PostID != comment.PostID {
				return models.NewConflictError("Parent comment belongs to a different post")
			}
		}
		if err := tx.Create(comment).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, comment.ID)
}

func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	comment.Replies = []models.Comment{}
	return &comment, nil
}

// GetTree returns the subtree rooted at id down to maxDepth levels of
// replies, each node with its author loaded.
func (r *commentRepository) GetTree(ctx context.Context, id uuid.UUID, maxDepth int) (*models.Comment, error) {
	comment, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadReplies(ctx, []*models.Comment{comment}, maxDepth); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListByPost returns root comments (newest first) with their
// bounded-depth reply trees.
func (r *commentRepository) ListByPost(ctx context.Context, postID uuid.UUID, offset, limit, maxDepth int) ([]models.Comment, error) {
	var roots []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&roots).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	frontier := make([]*models.Comment, len(roots))
	for i := range roots {
		roots[i].Replies = []models.Comment{}
		frontier[i] = &roots[i]
	}
	if err := r.loadReplies(ctx, frontier, maxDepth); err != nil {
		return nil, err
	}
	return roots, nil
}

// ListReplies returns the direct children of a comment, oldest first.
func (r *commentRepository) ListReplies(ctx context.Context, id uuid.UUID, offset, limit int) ([]models.Comment, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	var replies []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("parent_id = ?", id).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&replies).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range replies {
		replies[i].Replies = []models.Comment{}
	}
	return replies, nil
}

func (r *commentRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range comments {
		comments[i].Replies = []models.Comment{}
	}
	return comments, nil
}

// UpdateContent mutates the comment text. Author, parent and post are
// immutable after creation.
func (r *commentRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Comment, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Update("content", content)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Comment", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the comment and its entire reply subtree in a single
// transaction. The subtree is collected level by level and deleted in
// one statement; the ON DELETE CASCADE constraint on parent_id backs
// this up at the database level, so a reply created mid-delete either
// fails its parent check or is captured by the cascade. Partial
// deletion is never observable.
func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		if err := tx.First(&root, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Comment", id)
			}
			return models.NewInternalError(err)
		}

		subtree := []uuid.UUID{id}
		frontier := []uuid.UUID{id}
		for len(frontier) > 0 {
			var childIDs []uuid.UUID
			if err := tx.Model(&models.Comment{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &childIDs).Error; err != nil {
				return models.NewInternalError(err)
			}
			subtree = append(subtree, childIDs...)
			frontier = childIDs
		}

		if err := tx.Where("id IN ?", subtree).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

// loadReplies attaches up to maxDepth levels of replies below the given
// nodes, one query per level regardless of node count.
func (r *commentRepository) loadReplies(ctx context.Context, frontier []*models.Comment, maxDepth int) error {
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		byID := make(map[uuid.UUID]*models.Comment, len(frontier))
		ids := make([]uuid.UUID, 0, len(frontier))
		for _, node := range frontier {
			node.Replies = []models.Comment{}
			byID[node.ID] = node
			ids = append(ids, node.ID)
		}

		var children []models.Comment
		err := r.db.WithContext(ctx).
			Preload("User").
			Where("parent_id IN ?", ids).
			Order("created_at ASC").
			Find(&children).Error
		if err != nil {
			return models.NewInternalError(err)
		}

		for _, child := range children {
			parent := byID[*child.ParentID]
			child.Replies = []models.Comment{}
			parent.Replies = append(parent.Replies, child)
		}

		// Collect pointers only after all appends: appending can
		// reallocate the Replies backing arrays.
		next := make([]*models.Comment, 0, len(children))
		for _, node := range frontier {
			for i := range node.Replies {
				next = append(next, &node.Replies[i])
			}
		}
		frontier = next
	}
	return nil
}
