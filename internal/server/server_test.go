package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/auth"
	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestServer builds a server over an in-memory SQLite database.
// Redis and object storage stay nil: the cache helpers and rate
// limiters fail open without them.
func setupTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.Media{},
	))

	cfg := &config.Config{
		Port:            "8080",
		JWTSecret:       "test-secret-key",
		AccessTokenTTL:  "15m",
		RefreshTokenTTL: "720h",
	}

	s := NewServerWithDeps(cfg, db, nil, nil)
	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

func createAccount(t *testing.T, s *Server, username string, superuser bool) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  superuser,
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func accessTokenFor(t *testing.T, s *Server, user *models.User) string {
	t.Helper()
	token, err := s.codec.IssueAccess(user.ID)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestRegisterLoginMeRoundTrip(t *testing.T) {
	_, app := setupTestServer(t)

	resp := doJSON(t, app, "POST", "/api/users/", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
		"full_name": "Alice Doe",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created models.User
	decodeBody(t, resp, &created)
	assert.Equal(t, "alice", created.Username)

	resp = doJSON(t, app, "POST", "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var pair auth.TokenPair
	decodeBody(t, resp, &pair)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)

	resp = doJSON(t, app, "GET", "/api/auth/me", pair.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, created.ID, me.ID)
}

func TestLoginFailures(t *testing.T) {
	s, app := setupTestServer(t)
	createAccount(t, s, "alice", false)

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "Wrong password",
			body:           map[string]string{"email": "alice@example.com", "password": "nope"},
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Unknown email reads as bad credentials",
			body:           map[string]string{"email": "ghost@example.com", "password": "password123"},
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Missing fields",
			body:           map[string]string{"email": "alice@example.com"},
			expectedStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, "POST", "/api/auth/login", "", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestRefreshFlow(t *testing.T) {
	s, app := setupTestServer(t)
	user := createAccount(t, s, "alice", false)

	refresh, err := s.codec.IssueRefresh(user.ID)
	require.NoError(t, err)

	t.Run("Valid refresh", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/auth/refresh", "", map[string]string{
			"refresh_token": refresh,
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var pair auth.TokenPair
		decodeBody(t, resp, &pair)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("Access token rejected", func(t *testing.T) {
		access := accessTokenFor(t, s, user)
		resp := doJSON(t, app, "POST", "/api/auth/refresh", "", map[string]string{
			"refresh_token": access,
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Deactivated user rejected", func(t *testing.T) {
		require.NoError(t, s.db.Model(user).Update("is_active", false).Error)
		defer s.db.Model(user).Update("is_active", true)

		resp := doJSON(t, app, "POST", "/api/auth/refresh", "", map[string]string{
			"refresh_token": refresh,
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestAuthRequired(t *testing.T) {
	s, app := setupTestServer(t)
	user := createAccount(t, s, "alice", false)

	tests := []struct {
		name           string
		token          string
		header         string
		expectedStatus int
	}{
		{"Missing header", "", "", fiber.StatusUnauthorized},
		{"Bad format", "", "NotBearer xyz", fiber.StatusUnauthorized},
		{"Malformed token", "garbage", "", fiber.StatusUnauthorized},
		{"Valid token", accessTokenFor(t, s, user), "", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			} else if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	t.Run("Refresh token rejected on protected route", func(t *testing.T) {
		refresh, err := s.codec.IssueRefresh(user.ID)
		require.NoError(t, err)

		resp := doJSON(t, app, "GET", "/api/auth/me", refresh, nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Deactivated user rejected", func(t *testing.T) {
		ghost := createAccount(t, s, "ghost", false)
		token := accessTokenFor(t, s, ghost)
		require.NoError(t, s.db.Model(ghost).Update("is_active", false).Error)

		resp := doJSON(t, app, "GET", "/api/auth/me", token, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestPostOwnershipPolicy(t *testing.T) {
	s, app := setupTestServer(t)
	owner := createAccount(t, s, "owner", false)
	stranger := createAccount(t, s, "stranger", false)
	admin := createAccount(t, s, "admin", true)

	makePost := func(slugSuffix string) uuid.UUID {
		resp := doJSON(t, app, "POST", "/api/posts/", accessTokenFor(t, s, owner), map[string]any{
			"title":        "My Post",
			"content":      "hello world",
			"slug":         "my-post-" + slugSuffix,
			"is_published": true,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		var post models.Post
		decodeBody(t, resp, &post)
		return post.ID
	}

	t.Run("Stranger cannot delete", func(t *testing.T) {
		id := makePost("a")
		resp := doJSON(t, app, "DELETE", fmt.Sprintf("/api/posts/%s", id), accessTokenFor(t, s, stranger), nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("Owner can delete", func(t *testing.T) {
		id := makePost("b")
		resp := doJSON(t, app, "DELETE", fmt.Sprintf("/api/posts/%s", id), accessTokenFor(t, s, owner), nil)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	})

	t.Run("Superuser can delete", func(t *testing.T) {
		id := makePost("c")
		resp := doJSON(t, app, "DELETE", fmt.Sprintf("/api/posts/%s", id), accessTokenFor(t, s, admin), nil)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	})

	t.Run("Stranger cannot update", func(t *testing.T) {
		id := makePost("d")
		resp := doJSON(t, app, "PUT", fmt.Sprintf("/api/posts/%s", id), accessTokenFor(t, s, stranger), map[string]string{
			"title": "hijacked",
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestDraftVisibility(t *testing.T) {
	s, app := setupTestServer(t)
	owner := createAccount(t, s, "owner", false)
	stranger := createAccount(t, s, "stranger", false)
	admin := createAccount(t, s, "admin", true)

	resp := doJSON(t, app, "POST", "/api/posts/", accessTokenFor(t, s, owner), map[string]any{
		"title":   "Secret Draft",
		"content": "unfinished",
		"slug":    "secret-draft",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var draft models.Post
	decodeBody(t, resp, &draft)

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{"Anonymous gets 404", "", fiber.StatusNotFound},
		{"Stranger gets 404", accessTokenFor(t, s, stranger), fiber.StatusNotFound},
		{"Owner sees draft", accessTokenFor(t, s, owner), fiber.StatusOK},
		{"Superuser sees draft", accessTokenFor(t, s, admin), fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, "GET", fmt.Sprintf("/api/posts/%s", draft.ID), tt.token, nil)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestTaxonomySuperuserOnly(t *testing.T) {
	s, app := setupTestServer(t)
	user := createAccount(t, s, "alice", false)
	admin := createAccount(t, s, "admin", true)

	resp := doJSON(t, app, "POST", "/api/categories/", accessTokenFor(t, s, user), map[string]string{
		"name": "Technology",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/categories/", accessTokenFor(t, s, admin), map[string]string{
		"name": "Technology",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var category models.Category
	decodeBody(t, resp, &category)
	assert.Equal(t, "technology", category.Slug)

	// Reads stay public.
	req := httptest.NewRequest("GET", fmt.Sprintf("/api/categories/%s", category.ID), nil)
	public, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, public.StatusCode)
}

func TestUserManagementPolicy(t *testing.T) {
	s, app := setupTestServer(t)
	alice := createAccount(t, s, "alice", false)
	bob := createAccount(t, s, "bob", false)
	admin := createAccount(t, s, "admin", true)

	t.Run("Listing users requires superuser", func(t *testing.T) {
		resp := doJSON(t, app, "GET", "/api/users/", accessTokenFor(t, s, alice), nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		resp = doJSON(t, app, "GET", "/api/users/", accessTokenFor(t, s, admin), nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Cannot update another user", func(t *testing.T) {
		resp := doJSON(t, app, "PATCH", fmt.Sprintf("/api/users/%s", bob.ID), accessTokenFor(t, s, alice), map[string]string{
			"bio": "hacked",
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("Delete deactivates the account", func(t *testing.T) {
		resp := doJSON(t, app, "DELETE", fmt.Sprintf("/api/users/%s", bob.ID), accessTokenFor(t, s, bob), nil)
		require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

		var stored models.User
		require.NoError(t, s.db.First(&stored, "id = ?", bob.ID).Error)
		assert.False(t, stored.IsActive)

		// Existing tokens stop working once deactivated.
		me := doJSON(t, app, "GET", "/api/auth/me", accessTokenFor(t, s, bob), nil)
		assert.Equal(t, fiber.StatusForbidden, me.StatusCode)
	})
}
