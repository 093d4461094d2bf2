package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationPostgresStorage(t *testing.T) {
	storage := NewNotificationPostgresStorage()
	ctx := context.Background()
	setupTestDB(t)

	owner := createTestUser(t, "owner")
	commenter := createTestUser(t, "commenter")
	postID := createTestPost(t, owner)
	commentID := fmt.Sprint(createTestComment(t, postID, commenter))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	newNotification := func(typ model.NotificationType, at time.Time) *model.Notification {
		return &model.Notification{
			RecipientUserID:   fmt.Sprint(commenter),
			TriggeredByUserID: fmt.Sprint(owner),
			PostID:            fmt.Sprint(postID),
			CommentID:         commentID,
			Type:              typ,
			DedupeKey:         notification.DedupeKey(typ, fmt.Sprint(postID), fmt.Sprint(commenter), "t:"+string(typ)),
			CreatedAt:         at,
		}
	}

	first, err := storage.CreateNotification(ctx, newNotification(model.NotificationCommunityIdentified, base))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, commentID, first.CommentID)
	assert.False(t, first.Read)

	second, err := storage.CreateNotification(ctx, newNotification(model.NotificationModeratorConfirmed, base.Add(time.Minute)))
	require.NoError(t, err)

	t.Run("Duplicate key is rejected", func(t *testing.T) {
		_, err := storage.CreateNotification(ctx, newNotification(model.NotificationCommunityIdentified, base))
		assert.ErrorIs(t, err, notification.ErrDuplicate)
	})

	t.Run("Newest first", func(t *testing.T) {
		inbox, err := storage.ListForUser(ctx, fmt.Sprint(commenter))
		require.NoError(t, err)
		require.Len(t, inbox, 2)
		assert.Equal(t, second.ID, inbox[0].ID)
		assert.Equal(t, first.ID, inbox[1].ID)

		inbox, err = storage.ListForUser(ctx, fmt.Sprint(owner))
		require.NoError(t, err)
		assert.Empty(t, inbox)
	})

	t.Run("Mark read", func(t *testing.T) {
		// чужое уведомление не найти
		err := storage.MarkRead(ctx, first.ID, fmt.Sprint(owner))
		assert.ErrorIs(t, err, notification.ErrNotificationNotFound)

		require.NoError(t, storage.MarkRead(ctx, first.ID, fmt.Sprint(commenter)))
		inbox, err := storage.ListForUser(ctx, fmt.Sprint(commenter))
		require.NoError(t, err)
		require.Len(t, inbox, 2)
		assert.True(t, inbox[1].Read)
		assert.False(t, inbox[0].Read)
	})

	t.Run("Delete by post", func(t *testing.T) {
		require.NoError(t, storage.DeleteByPost(ctx, fmt.Sprint(postID)))
		inbox, err := storage.ListForUser(ctx, fmt.Sprint(commenter))
		require.NoError(t, err)
		assert.Empty(t, inbox)
	})
}
