// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

var categoryNames = []string{
	"Technology", "Programming", "DevOps", "Design", "Writing",
	"Productivity", "Career", "Open Source", "Databases", "Security",
}

var tagNames = []string{
	"go", "tutorial", "opinion", "deep-dive", "beginners",
	"performance", "testing", "tooling", "web", "cli",
}

// Seed populates the database with test data
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)
	gofakeit.Seed(time.Now().UnixNano())

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d test users created", len(users))

	categories, tags, err := createTaxonomy(db)
	if err != nil {
		return fmt.Errorf("failed to create taxonomy: %w", err)
	}
	log.Printf("✓ %d categories and %d tags available", len(categories), len(tags))

	posts, err := createPosts(db, users, categories, tags, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	count, err := createCommentThreads(db, users, posts)
	if err != nil {
		return fmt.Errorf("failed to create comments: %w", err)
	}
	log.Printf("✓ %d comments created", count)

	return nil
}

func clearData(db *gorm.DB) error {
	// Children before parents so foreign keys never block a delete.
	for _, table := range []string{"comments", "media", "post_categories", "post_tags", "posts", "categories", "tags", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, n int) ([]models.User, error) {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n+1)

	admin := models.User{
		Username:     "admin",
		Email:        "admin@inkwell.dev",
		PasswordHash: hash,
		FullName:     "Site Admin",
		IsActive:     true,
		IsSuperuser:  true,
	}
	if err := db.FirstOrCreate(&admin, models.User{Email: admin.Email}).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < n; i++ {
		user := models.User{
			Username:     fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
			Email:        gofakeit.Email(),
			PasswordHash: hash,
			FullName:     gofakeit.Name(),
			Bio:          gofakeit.Sentence(10),
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			continue // skip rare fake-data collisions
		}
		users = append(users, user)
	}
	return users, nil
}

func createTaxonomy(db *gorm.DB) ([]models.Category, []models.Tag, error) {
	categories := make([]models.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		category := models.Category{
			Name:        name,
			Slug:        slug.Make(name),
			Description: gofakeit.Sentence(8),
		}
		if err := db.Where(models.Category{Slug: category.Slug}).FirstOrCreate(&category).Error; err != nil {
			return nil, nil, err
		}
		categories = append(categories, category)
	}

	tags := make([]models.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		tag := models.Tag{Name: name, Slug: slug.Make(name)}
		if err := db.Where(models.Tag{Slug: tag.Slug}).FirstOrCreate(&tag).Error; err != nil {
			return nil, nil, err
		}
		tags = append(tags, tag)
	}
	return categories, tags, nil
}

func createPosts(db *gorm.DB, users []models.User, categories []models.Category, tags []models.Tag, n int) ([]models.Post, error) {
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[rand.Intn(len(users))]
		title := gofakeit.Sentence(5)
		published := rand.Float64() < 0.85

		post := models.Post{
			Title:       title,
			Slug:        fmt.Sprintf("%s-%s", slug.Make(title), uuid.NewString()[:8]),
			Content:     gofakeit.Paragraph(3, 5, 8, "\n\n"),
			Summary:     gofakeit.Sentence(12),
			IsPublished: published,
			AuthorID:    author.ID,
		}
		if published {
			at := gofakeit.DateRange(time.Now().AddDate(0, -6, 0), time.Now())
			post.PublishedAt = &at
		}
		if err := db.Create(&post).Error; err != nil {
			return nil, err
		}

		picks := rand.Intn(3)
		if picks > 0 {
			chosen := make([]models.Category, 0, picks)
			for _, idx := range rand.Perm(len(categories))[:picks] {
				chosen = append(chosen, categories[idx])
			}
			if err := db.Model(&post).Association("Categories").Replace(chosen); err != nil {
				return nil, err
			}
		}
		picks = rand.Intn(4)
		if picks > 0 {
			chosen := make([]models.Tag, 0, picks)
			for _, idx := range rand.Perm(len(tags))[:picks] {
				chosen = append(chosen, tags[idx])
			}
			if err := db.Model(&post).Association("Tags").Replace(chosen); err != nil {
				return nil, err
			}
		}

		posts = append(posts, post)
	}
	return posts, nil
}

// createCommentThreads builds nested discussions: root comments on
// published posts, then replies hanging off earlier comments.
func createCommentThreads(db *gorm.DB, users []models.User, posts []models.Post) (int, error) {
	total := 0
	for _, post := range posts {
		if !post.IsPublished {
			continue
		}

		thread := make([]models.Comment, 0, 8)
		roots := rand.Intn(4)
		for i := 0; i < roots; i++ {
			comment := models.Comment{
				Content: gofakeit.Sentence(12),
				PostID:  post.ID,
				UserID:  users[rand.Intn(len(users))].ID,
			}
			if err := db.Create(&comment).Error; err != nil {
				return total, err
			}
			thread = append(thread, comment)
			total++
		}

		replies := rand.Intn(6)
		for i := 0; i < replies && len(thread) > 0; i++ {
			parent := thread[rand.Intn(len(thread))]
			comment := models.Comment{
				Content:  gofakeit.Sentence(8),
				PostID:   post.ID,
				UserID:   users[rand.Intn(len(users))].ID,
				ParentID: &parent.ID,
			}
			if err := db.Create(&comment).Error; err != nil {
				return total, err
			}
			thread = append(thread, comment)
			total++
		}
	}
	return total, nil
}
