package verification

import (
	"fmt"
	"strings"
)

const (
	TransitionCommunityVerify  = "community_verify"
	TransitionModeratorConfirm = "moderator_confirm"
	TransitionModeratorReopen  = "moderator_reopen"
	TransitionArtistConfirm    = "artist_confirm"
	TransitionArtistDeny       = "artist_deny"
)

// Command — команда перехода. Реализации перечислены ниже, других нет.
type Command interface {
	Transition() string
	Validate() error
	isCommand()
}

type CommunityVerifyCommand struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId"`
	ActorID   string `json:"-"`
}

// ModeratorConfirmCommand — пустой CommentID означает комментарий, выбранный владельцем.
type ModeratorConfirmCommand struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId,omitempty"`
	ActorID   string `json:"-"`
}

type ModeratorReopenCommand struct {
	PostID  string `json:"postId"`
	ActorID string `json:"-"`
}

type ArtistConfirmCommand struct {
	CommentID string `json:"commentId"`
	ActorID   string `json:"-"`
}

type ArtistDenyCommand struct {
	CommentID string `json:"commentId"`
	ActorID   string `json:"-"`
}

func (CommunityVerifyCommand) isCommand()  {}
func (ModeratorConfirmCommand) isCommand() {}
func (ModeratorReopenCommand) isCommand()  {}
func (ArtistConfirmCommand) isCommand()    {}
func (ArtistDenyCommand) isCommand()       {}

func (CommunityVerifyCommand) Transition() string  { return TransitionCommunityVerify }
func (ModeratorConfirmCommand) Transition() string { return TransitionModeratorConfirm }
func (ModeratorReopenCommand) Transition() string  { return TransitionModeratorReopen }
func (ArtistConfirmCommand) Transition() string    { return TransitionArtistConfirm }
func (ArtistDenyCommand) Transition() string       { return TransitionArtistDeny }

func (c CommunityVerifyCommand) Validate() error {
	return requireFields(c.Transition(), "postId", c.PostID, "commentId", c.CommentID, "actor", c.ActorID)
}

func (c ModeratorConfirmCommand) Validate() error {
	return requireFields(c.Transition(), "postId", c.PostID, "actor", c.ActorID)
}

func (c ModeratorReopenCommand) Validate() error {
	return requireFields(c.Transition(), "postId", c.PostID, "actor", c.ActorID)
}

func (c ArtistConfirmCommand) Validate() error {
	return requireFields(c.Transition(), "commentId", c.CommentID, "actor", c.ActorID)
}

func (c ArtistDenyCommand) Validate() error {
	return requireFields(c.Transition(), "commentId", c.CommentID, "actor", c.ActorID)
}

// requireFields принимает пары имя/значение и проверяет, что значения не пустые.
func requireFields(transition string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%s: %s is required: %w", transition, pairs[i], ErrInvalidCommand)
		}
	}
	return nil
}

// TransitionID — идентификатор перехода; version — версия поста, записанная переходом.
func TransitionID(transition, postID string, version int64) string {
	return fmt.Sprintf("%s:%s:v%d", transition, postID, version)
}
