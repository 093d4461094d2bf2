package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/post"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUserContext(userID uint) context.Context {
	ctx := context.Background()
	return auth.WithUserID(ctx, userID)
}

func strPtr(s string) *string {
	return &s
}

func TestPostMemoryStorage_CreatePost(t *testing.T) {
	storage := NewPostMemoryStorage()

	t.Run("Success post creation", func(t *testing.T) {
		ctx := createUserContext(1)

		p, err := storage.CreatePost(ctx, "Heard this at a rave", "techno", "https://cdn.example.com/a.mp4")
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "1", p.AuthorID)
		assert.Equal(t, "techno", p.Genre)
		assert.Equal(t, model.StatusUnverified, p.VerificationStatus)
		assert.Nil(t, p.VerifiedCommentID)
		assert.Equal(t, int64(1), p.Version)

		postFromStorage, err := storage.GetPostById(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, postFromStorage.ID)
	})

	t.Run("Error: no authorization", func(t *testing.T) {
		// Используем контекст без информации о пользователе
		_, err := storage.CreatePost(context.Background(), "clip", "", "")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
		assert.Contains(t, err.Error(), "unautorized")
	})
}

func TestPostMemoryStorage_GetPostById(t *testing.T) {
	storage := NewPostMemoryStorage()
	ctx := context.Background()

	t.Run("Missing post", func(t *testing.T) {
		_, err := storage.GetPostById(ctx, "404")
		assert.ErrorIs(t, err, post.ErrPostNotFound)
	})

	t.Run("Returned post is a copy", func(t *testing.T) {
		p, err := storage.CreatePost(createUserContext(1), "clip", "", "")
		require.NoError(t, err)

		p.VerificationStatus = model.StatusIdentified
		p.Version = 100

		stored, err := storage.GetPostById(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusUnverified, stored.VerificationStatus)
		assert.Equal(t, int64(1), stored.Version)
	})
}

func TestPostMemoryStorage_GetAllPosts(t *testing.T) {
	storage := NewPostMemoryStorage()
	ctx := createUserContext(1)

	for i := 0; i < 11; i++ {
		_, err := storage.CreatePost(ctx, "clip "+strconv.Itoa(i), "", "")
		require.NoError(t, err)
	}

	posts, err := storage.GetAllPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 11)
	// новые первыми, "11" идет раньше "9"
	assert.Equal(t, "11", posts[0].ID)
	assert.Equal(t, "10", posts[1].ID)
	assert.Equal(t, "1", posts[10].ID)
}

func TestPostMemoryStorage_UpdateVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("Conditional write bumps version", func(t *testing.T) {
		storage := NewPostMemoryStorage()
		p, err := storage.CreatePost(createUserContext(1), "clip", "", "")
		require.NoError(t, err)

		updated, err := storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:            p.ID,
			ExpectedVersion:   1,
			Status:            model.StatusCommunity,
			VerifiedCommentID: strPtr("7"),
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusCommunity, updated.VerificationStatus)
		assert.Equal(t, "7", updated.VerifiedComment())
		assert.Equal(t, int64(2), updated.Version)
		assert.False(t, updated.UpdatedAt.Before(p.UpdatedAt))
	})

	t.Run("Stale version", func(t *testing.T) {
		storage := NewPostMemoryStorage()
		p, err := storage.CreatePost(createUserContext(1), "clip", "", "")
		require.NoError(t, err)

		upd := model.VerificationUpdate{PostID: p.ID, ExpectedVersion: 1, Status: model.StatusCommunity, VerifiedCommentID: strPtr("7")}
		_, err = storage.UpdateVerification(ctx, upd)
		require.NoError(t, err)

		_, err = storage.UpdateVerification(ctx, upd)
		assert.ErrorIs(t, err, post.ErrVersionConflict)
	})

	t.Run("Status and comment must agree", func(t *testing.T) {
		storage := NewPostMemoryStorage()
		p, err := storage.CreatePost(createUserContext(1), "clip", "", "")
		require.NoError(t, err)

		_, err = storage.UpdateVerification(ctx, model.VerificationUpdate{PostID: p.ID, ExpectedVersion: 1, Status: model.StatusIdentified})
		assert.Error(t, err)

		_, err = storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:            p.ID,
			ExpectedVersion:   1,
			Status:            model.StatusUnverified,
			VerifiedCommentID: strPtr("7"),
		})
		assert.Error(t, err)
	})

	t.Run("Missing post", func(t *testing.T) {
		storage := NewPostMemoryStorage()
		_, err := storage.UpdateVerification(ctx, model.VerificationUpdate{PostID: "404", ExpectedVersion: 1, Status: model.StatusUnverified})
		assert.ErrorIs(t, err, post.ErrPostNotFound)
	})
}

func TestPostMemoryStorage_ListByStatus(t *testing.T) {
	storage := NewPostMemoryStorage()
	ctx := context.Background()
	author := createUserContext(1)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		p, err := storage.CreatePost(author, "clip", "", "")
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	// третий и первый попадают в очередь в одно время, второй раньше
	times := map[string]time.Time{ids[0]: base.Add(time.Minute), ids[1]: base, ids[2]: base.Add(time.Minute)}
	for _, id := range ids {
		_, err := storage.UpdateVerification(ctx, model.VerificationUpdate{
			PostID:            id,
			ExpectedVersion:   1,
			Status:            model.StatusCommunity,
			VerifiedCommentID: strPtr("1"),
			UpdatedAt:         times[id],
		})
		require.NoError(t, err)
	}

	posts, err := storage.ListByStatus(ctx, model.StatusCommunity)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{ids[1], ids[0], ids[2]}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	posts, err = storage.ListByStatus(ctx, model.StatusUnverified)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostMemoryStorage_DeletePostById(t *testing.T) {
	storage := NewPostMemoryStorage()
	ctx := context.Background()

	p, err := storage.CreatePost(createUserContext(1), "clip", "", "")
	require.NoError(t, err)

	_, err = storage.UpdateVerification(ctx, model.VerificationUpdate{
		PostID:          p.ID,
		ExpectedVersion: p.Version,
		Status:          model.StatusUnverified,
	})
	require.NoError(t, err)

	// версия поста сменилась после чтения
	assert.ErrorIs(t, storage.DeletePostById(ctx, p.ID, p.Version), post.ErrVersionConflict)
	_, err = storage.GetPostById(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, storage.DeletePostById(ctx, p.ID, p.Version+1))
	_, err = storage.GetPostById(ctx, p.ID)
	assert.ErrorIs(t, err, post.ErrPostNotFound)

	assert.ErrorIs(t, storage.DeletePostById(ctx, p.ID, p.Version+1), post.ErrPostNotFound)
}

func TestPostMemoryStorage_ConcurrentOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("Concurrent post creation", func(t *testing.T) {
		storage := NewPostMemoryStorage()
		var wg sync.WaitGroup
		numGoroutines := 10

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				userID := idx + 1

				p, err := storage.CreatePost(createUserContext(uint(userID)), "clip "+strconv.Itoa(idx), "", "")
				assert.NoError(t, err)
				assert.Equal(t, strconv.Itoa(userID), p.AuthorID)
			}(i)
		}

		wg.Wait()

		// Проверяем, что все посты были созданы с разными ID
		allPosts, err := storage.GetAllPosts(ctx)
		require.NoError(t, err)
		assert.Len(t, allPosts, numGoroutines)
	})

	t.Run("Only one writer wins a version", func(t *testing.T) {
		storage := NewPostMemoryStorage()
		p, err := storage.CreatePost(createUserContext(1), "clip", "", "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins, conflicts := 0, 0

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				_, err := storage.UpdateVerification(ctx, model.VerificationUpdate{
					PostID:            p.ID,
					ExpectedVersion:   1,
					Status:            model.StatusCommunity,
					VerifiedCommentID: strPtr(strconv.Itoa(idx)),
				})

				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
				} else {
					assert.ErrorIs(t, err, post.ErrVersionConflict)
					conflicts++
				}
			}(i)
		}

		wg.Wait()
		assert.Equal(t, 1, wins)
		assert.Equal(t, 19, conflicts)

		final, err := storage.GetPostById(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), final.Version)
	})
}
