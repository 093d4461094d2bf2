package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/vote"
)

type VoteMemoryStorage struct {
	mu     sync.Mutex
	votes  map[string]map[string]model.VoteDirection // commentID -> userID -> направление
	postOf map[string]string                         // commentID -> postID, для каскадного удаления
}

func NewVoteMemoryStorage() *VoteMemoryStorage {
	return &VoteMemoryStorage{
		votes:  make(map[string]map[string]model.VoteDirection),
		postOf: make(map[string]string),
	}
}

func (s *VoteMemoryStorage) CastVote(ctx context.Context, postID, commentID string, direction model.VoteDirection) (*model.Vote, error) {
	if !direction.Valid() {
		return nil, vote.ErrInvalidDirection
	}

	userID, err := auth.UserIDString(ctx)
	if err != nil {
		return nil, fmt.Errorf("unautorized: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.votes[commentID]
	if !ok {
		byUser = make(map[string]model.VoteDirection)
		s.votes[commentID] = byUser
	}
	// повторный голос заменяет предыдущий, а не добавляется
	byUser[userID] = direction
	s.postOf[commentID] = postID

	return &model.Vote{CommentID: commentID, UserID: userID, Direction: direction}, nil
}

func (s *VoteMemoryStorage) RemoveVote(ctx context.Context, commentID string) error {
	userID, err := auth.UserIDString(ctx)
	if err != nil {
		return fmt.Errorf("unautorized: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.votes[commentID]
	if !ok {
		return vote.ErrVoteNotFound
	}
	if _, ok := byUser[userID]; !ok {
		return vote.ErrVoteNotFound
	}
	delete(byUser, userID)
	return nil
}

func (s *VoteMemoryStorage) Scores(ctx context.Context, commentIDs []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := make(map[string]int, len(commentIDs))
	for _, id := range commentIDs {
		score := 0
		for _, d := range s.votes[id] {
			score += d.Value()
		}
		scores[id] = score
	}
	return scores, nil
}

func (s *VoteMemoryStorage) DeleteByPost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for commentID, p := range s.postOf {
		if p == postID {
			delete(s.votes, commentID)
			delete(s.postOf, commentID)
		}
	}
	return nil
}
