package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite" // Импортируем драйвер SQLite
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Создает контекст с ID пользователя
func createUserContext(userID uint) context.Context {
	return auth.WithUserID(context.Background(), userID)
}

// setupTestDB создает тестовую БД в памяти, выполняет миграции и
// восстанавливает прежнее соединение по завершении теста
func setupTestDB(t *testing.T) {
	t.Helper()
	oldDB := GetDB()

	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err, "Failed to connect to in-memory SQLite")

	// у каждого соединения своя :memory: база
	db.DB().SetMaxOpenConns(1)
	db.LogMode(false)

	require.NoError(t, Migrate(db), "Failed to migrate database schema")
	InitDBWithConnection(db)

	t.Cleanup(func() {
		db.Close()
		InitDBWithConnection(oldDB)
	})
}

// createTestUser создает тестового пользователя и возвращает его ID
func createTestUser(t *testing.T, username string) uint {
	t.Helper()
	u := &models.User{
		Username:    username,
		UsernameKey: username,
		Password:    "password123",
		AccountType: string(model.AccountUser),
	}

	require.NoError(t, DB.Create(u).Error, "Failed to create test user")
	return u.ID
}

// createTestPost создает тестовый пост и возвращает его ID
func createTestPost(t *testing.T, userID uint) uint {
	t.Helper()
	p := &models.Post{
		Description:        "Test clip",
		Genre:              "house",
		VideoURL:           "https://cdn.example.com/clip.mp4",
		UserID:             userID,
		VerificationStatus: string(model.StatusUnverified),
		Version:            1,
	}

	require.NoError(t, DB.Create(p).Error, "Failed to create test post")
	return p.ID
}

// createTestComment создает комментарий к посту и возвращает его ID
func createTestComment(t *testing.T, postID, userID uint) uint {
	t.Helper()
	c := &models.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   "Test comment",
		TagStatus: string(model.TagNone),
	}

	require.NoError(t, DB.Create(c).Error, "Failed to create test comment")
	return c.ID
}

func TestPostPostgresStorage_CreatePost(t *testing.T) {
	storage := NewPostPostgresStorage()

	t.Run("Success post creation", func(t *testing.T) {
		setupTestDB(t)
		userID := createTestUser(t, "testuser")

		p, err := storage.CreatePost(createUserContext(userID), "Track from a set", "techno", "https://cdn.example.com/a.mp4")
		require.NoError(t, err)
		assert.Equal(t, "Track from a set", p.Description)
		assert.Equal(t, "techno", p.Genre)
		assert.Equal(t, fmt.Sprint(userID), p.AuthorID)
		assert.Equal(t, model.StatusUnverified, p.VerificationStatus)
		assert.Nil(t, p.VerifiedCommentID)
		assert.Equal(t, int64(1), p.Version)

		// Проверяем, что пост действительно создался в БД
		var dbPost models.Post
		require.NoError(t, DB.First(&dbPost, p.ID).Error)
		assert.Equal(t, userID, dbPost.UserID)
		assert.Equal(t, "https://cdn.example.com/a.mp4", dbPost.VideoURL)
	})

	t.Run("Error: no authorization", func(t *testing.T) {
		setupTestDB(t)

		p, err := storage.CreatePost(context.Background(), "clip", "", "")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
		assert.Nil(t, p)
	})
}

func TestPostPostgresStorage_GetPostById(t *testing.T) {
	storage := NewPostPostgresStorage()
	ctx := context.Background()

	t.Run("Getting exists post", func(t *testing.T) {
		setupTestDB(t)
		userID := createTestUser(t, "testuser")
		postID := createTestPost(t, userID)

		p, err := storage.GetPostById(ctx, fmt.Sprint(postID))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(postID), p.ID)
		assert.Equal(t, fmt.Sprint(userID), p.AuthorID)
	})

	t.Run("Trying to get not exist post", func(t *testing.T) {
		setupTestDB(t)

		_, err := storage.GetPostById(ctx, "999")
		assert.ErrorIs(t, err, post.ErrPostNotFound)

		_, err = storage.GetPostById(ctx, "not-a-number")
		assert.ErrorIs(t, err, post.ErrPostNotFound)
	})
}

func TestPostPostgresStorage_GetAllPosts(t *testing.T) {
	storage := NewPostPostgresStorage()
	ctx := context.Background()

	t.Run("Empty database", func(t *testing.T) {
		setupTestDB(t)

		posts, err := storage.GetAllPosts(ctx)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("Newest posts first", func(t *testing.T) {
		setupTestDB(t)
		userID := createTestUser(t, "testuser")
		first := createTestPost(t, userID)
		second := createTestPost(t, userID)

		posts, err := storage.GetAllPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, fmt.Sprint(second), posts[0].ID)
		assert.Equal(t, fmt.Sprint(first), posts[1].ID)
	})
}

func TestPostPostgresStorage_UpdateVerification(t *testing.T) {
	storage := NewPostPostgresStorage()
	ctx := context.Background()

	t.Run("Status and comment change together", func(t *testing.T) {
		setupTestDB(t)
		userID := createTestUser(t, "testuser")
		postID := createTestPost(t, userID)
		commentID := fmt.Sprint(createTestComment(t, postID, userID))

		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		p, err := storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:            fmt.Sprint(postID),
			ExpectedVersion:   1,
			Status:            model.StatusCommunity,
			VerifiedCommentID: &commentID,
			UpdatedAt:         at,
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusCommunity, p.VerificationStatus)
		require.NotNil(t, p.VerifiedCommentID)
		assert.Equal(t, commentID, *p.VerifiedCommentID)
		assert.Equal(t, int64(2), p.Version)
		assert.True(t, at.Equal(p.UpdatedAt))

		p, err = storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:          fmt.Sprint(postID),
			ExpectedVersion: 2,
			Status:          model.StatusUnverified,
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusUnverified, p.VerificationStatus)
		assert.Nil(t, p.VerifiedCommentID)
		assert.Equal(t, int64(3), p.Version)
	})

	t.Run("Stale version is rejected", func(t *testing.T) {
		setupTestDB(t)
		userID := createTestUser(t, "testuser")
		postID := createTestPost(t, userID)
		commentID := fmt.Sprint(createTestComment(t, postID, userID))

		upd := model.VerificationUpdate{
			PostID:            fmt.Sprint(postID),
			ExpectedVersion:   1,
			Status:            model.StatusCommunity,
			VerifiedCommentID: &commentID,
		}
		_, err := storage.UpdateVerification(ctx, upd)
		require.NoError(t, err)

		_, err = storage.UpdateVerification(ctx, upd)
		assert.ErrorIs(t, err, post.ErrVersionConflict)

		stored, err := storage.GetPostById(ctx, fmt.Sprint(postID))
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
	})

	t.Run("Missing post", func(t *testing.T) {
		setupTestDB(t)

		_, err := storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:          "999",
			ExpectedVersion: 1,
			Status:          model.StatusUnverified,
		})
		assert.ErrorIs(t, err, post.ErrPostNotFound)
	})

	t.Run("Inconsistent update is refused", func(t *testing.T) {
		setupTestDB(t)
		userID := createTestUser(t, "testuser")
		postID := createTestPost(t, userID)

		_, err := storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:          fmt.Sprint(postID),
			ExpectedVersion: 1,
			Status:          model.StatusIdentified,
		})
		assert.Error(t, err)

		stored, err := storage.GetPostById(ctx, fmt.Sprint(postID))
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
	})
}

func TestPostPostgresStorage_ListByStatus(t *testing.T) {
	storage := NewPostPostgresStorage()
	ctx := context.Background()
	setupTestDB(t)

	userID := createTestUser(t, "testuser")
	first := createTestPost(t, userID)
	second := createTestPost(t, userID)
	createTestPost(t, userID)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// second уходит в очередь раньше first
	for i, id := range []uint{second, first} {
		commentID := fmt.Sprint(createTestComment(t, id, userID))
		_, err := storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:            fmt.Sprint(id),
			ExpectedVersion:   1,
			Status:            model.StatusCommunity,
			VerifiedCommentID: &commentID,
			UpdatedAt:         base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	posts, err := storage.ListByStatus(ctx, model.StatusCommunity)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, fmt.Sprint(second), posts[0].ID)
	assert.Equal(t, fmt.Sprint(first), posts[1].ID)

	posts, err = storage.ListByStatus(ctx, model.StatusIdentified)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostPostgresStorage_DeletePostById(t *testing.T) {
	storage := NewPostPostgresStorage()
	ctx := context.Background()

	t.Run("Deleted post is gone", func(t *testing.T) {
		setupTestDB(t)
		userID := createTestUser(t, "testuser")
		postID := createTestPost(t, userID)

		require.NoError(t, storage.DeletePostById(ctx, fmt.Sprint(postID), 1))

		_, err := storage.GetPostById(ctx, fmt.Sprint(postID))
		assert.ErrorIs(t, err, post.ErrPostNotFound)

		var count int
		require.NoError(t, DB.Unscoped().Model(&models.Post{}).Count(&count).Error)
		assert.Equal(t, 0, count)
	})

	t.Run("Stale version keeps the post", func(t *testing.T) {
		setupTestDB(t)
		userID := createTestUser(t, "testuser")
		postID := createTestPost(t, userID)

		_, err := storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:          fmt.Sprint(postID),
			ExpectedVersion: 1,
			Status:          model.StatusUnverified,
		})
		require.NoError(t, err)

		err = storage.DeletePostById(ctx, fmt.Sprint(postID), 1)
		assert.ErrorIs(t, err, post.ErrVersionConflict)

		p, err := storage.GetPostById(ctx, fmt.Sprint(postID))
		require.NoError(t, err)
		assert.Equal(t, int64(2), p.Version)
	})

	t.Run("Missing post", func(t *testing.T) {
		setupTestDB(t)

		err := storage.DeletePostById(ctx, "999", 1)
		assert.ErrorIs(t, err, post.ErrPostNotFound)
	})
}
