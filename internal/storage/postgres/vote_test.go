package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/vote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVotePostgresStorage(t *testing.T) {
	storage := NewVotePostgresStorage()
	ctx := context.Background()
	setupTestDB(t)

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	postID := createTestPost(t, alice)
	first := fmt.Sprint(createTestComment(t, postID, alice))
	second := fmt.Sprint(createTestComment(t, postID, bob))
	pid := fmt.Sprint(postID)

	t.Run("Votes are summed per comment", func(t *testing.T) {
		_, err := storage.CastVote(createUserContext(alice), pid, first, model.VoteUp)
		require.NoError(t, err)
		_, err = storage.CastVote(createUserContext(bob), pid, first, model.VoteUp)
		require.NoError(t, err)
		v, err := storage.CastVote(createUserContext(bob), pid, second, model.VoteDown)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(bob), v.UserID)

		scores, err := storage.Scores(ctx, []string{first, second, "999"})
		require.NoError(t, err)
		assert.Equal(t, 2, scores[first])
		assert.Equal(t, -1, scores[second])
		assert.Equal(t, 0, scores["999"])
	})

	t.Run("Second vote replaces the first", func(t *testing.T) {
		_, err := storage.CastVote(createUserContext(alice), pid, first, model.VoteDown)
		require.NoError(t, err)

		scores, err := storage.Scores(ctx, []string{first})
		require.NoError(t, err)
		assert.Equal(t, 0, scores[first])
	})

	t.Run("Invalid direction", func(t *testing.T) {
		_, err := storage.CastVote(createUserContext(alice), pid, first, model.VoteDirection("sideways"))
		assert.ErrorIs(t, err, vote.ErrInvalidDirection)
	})

	t.Run("Remove vote", func(t *testing.T) {
		require.NoError(t, storage.RemoveVote(createUserContext(alice), first))
		assert.ErrorIs(t, storage.RemoveVote(createUserContext(alice), first), vote.ErrVoteNotFound)

		scores, err := storage.Scores(ctx, []string{first})
		require.NoError(t, err)
		assert.Equal(t, 1, scores[first])
	})

	t.Run("Empty id list", func(t *testing.T) {
		scores, err := storage.Scores(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, scores)
	})

	t.Run("Delete by post", func(t *testing.T) {
		require.NoError(t, storage.DeleteByPost(ctx, pid))

		scores, err := storage.Scores(ctx, []string{first, second})
		require.NoError(t, err)
		assert.Equal(t, 0, scores[first])
		assert.Equal(t, 0, scores[second])
	})
}
