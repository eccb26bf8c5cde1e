// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"log"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	objects        *storage.ObjectStore
	promMiddleware *fiberprometheus.FiberPrometheus

	codec    *auth.TokenCodec
	sessions *auth.SessionIssuer

	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
	mediaRepo    repository.MediaRepository
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize Redis
	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	// Initialize object storage for media uploads
	objects, err := storage.NewObjectStore(cfg)
	if err != nil {
		log.Printf("Object storage warning: %v (media uploads disabled)", err)
		objects = nil
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := objects.EnsureBucket(ctx); err != nil {
			log.Printf("Object storage warning: %v (media uploads disabled)", err)
			objects = nil
		}
	}

	return NewServerWithDeps(cfg, db, redisClient, objects), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, objects *storage.ObjectStore) *Server {
	userRepo := repository.NewUserRepository(db)
	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		objects:        objects,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		codec:          codec,
		sessions:       auth.NewSessionIssuer(userRepo, codec),
		userRepo:       userRepo,
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
		tagRepo:        repository.NewTagRepository(db),
		mediaRepo:      repository.NewMediaRepository(db),
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit so browser
	// clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health check
	app.Get("/health", s.HealthCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/refresh", middleware.RateLimit(s.redis, 20, 5*time.Minute, "refresh"), s.RefreshTokens)
	authGroup.Get("/me", s.AuthRequired(), s.GetCurrentUser)

	// Public routes
	users := api.Group("/users")
	users.Post("/", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.RegisterUser)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/slug/:slug", s.GetPostBySlug)
	posts.Get("/:id", s.GetPost)

	comments := api.Group("/comments")
	comments.Get("/post/:postID", s.GetCommentsByPost)
	comments.Get("/user/:userID", s.GetCommentsByUser)
	comments.Get("/:id/replies", s.GetCommentReplies)
	comments.Get("/:id", s.GetCommentTree)

	categories := api.Group("/categories")
	categories.Get("/", s.GetCategories)
	categories.Get("/:id", s.GetCategory)

	tags := api.Group("/tags")
	tags.Get("/", s.GetTags)
	tags.Get("/:id", s.GetTag)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	protectedUsers := protected.Group("/users")
	protectedUsers.Get("/", s.GetAllUsers)
	protectedUsers.Get("/me", s.GetMyProfile)
	protectedUsers.Patch("/me", s.UpdateMyProfile)
	protectedUsers.Get("/:id", s.GetUserProfile)
	protectedUsers.Patch("/:id", s.UpdateUser)
	protectedUsers.Delete("/:id", s.DeleteUser)

	protectedPosts := protected.Group("/posts")
	protectedPosts.Post("/", middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	protectedPosts.Put("/:id", s.UpdatePost)
	protectedPosts.Delete("/:id", s.DeletePost)

	protectedComments := protected.Group("/comments")
	protectedComments.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	protectedComments.Post("/:id/replies", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.ReplyToComment)
	protectedComments.Patch("/:id", s.UpdateComment)
	protectedComments.Delete("/:id", s.DeleteComment)

	protectedCategories := protected.Group("/categories")
	protectedCategories.Post("/", s.CreateCategory)
	protectedCategories.Put("/:id", s.UpdateCategory)
	protectedCategories.Delete("/:id", s.DeleteCategory)

	protectedTags := protected.Group("/tags")
	protectedTags.Post("/", s.CreateTag)
	protectedTags.Put("/:id", s.UpdateTag)
	protectedTags.Delete("/:id", s.DeleteTag)

	media := protected.Group("/media")
	media.Post("/upload", middleware.RateLimit(s.redis, 10, 5*time.Minute, "upload_media"), s.UploadMedia)
	media.Get("/", s.GetMediaList)
	media.Get("/:id", s.GetMedia)
	media.Delete("/:id", s.DeleteMedia)
}

// HealthCheck handles health check requests
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Inkwell API",
		"version": "1.0.0",
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. It verifies the
// bearer token as an access token, re-resolves the user, rejects
// deactivated accounts, and stores the user in the request context.
// Attribution always comes from here, never from the request body.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization header required"))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		claims, err := s.codec.Decode(parts[1], auth.TokenTypeAccess)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		userID, err := claims.UserID()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token subject"))
		}

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Could not validate credentials"))
		}
		if !user.IsActive {
			return models.RespondWithAppError(c, models.NewInactiveUserError())
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID)

		return c.Next()
	}
}

// currentUser returns the authenticated user stored by AuthRequired.
func (s *Server) currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "Inkwell API",
		BodyLimit: 10 * 1024 * 1024, // 10MB upload limit
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
