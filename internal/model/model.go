// Package model содержит типы, которыми обмениваются хранилища, движок верификации и API.
package model

import "time"

type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusCommunity  VerificationStatus = "community"
	StatusIdentified VerificationStatus = "identified"
	StatusRejected   VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case StatusUnverified, StatusCommunity, StatusIdentified, StatusRejected:
		return true
	}
	return false
}

// HasVerifiedComment сообщает, должен ли пост в этом статусе ссылаться на комментарий.
func (s VerificationStatus) HasVerifiedComment() bool {
	return s == StatusCommunity || s == StatusIdentified
}

type TagStatus string

const (
	TagNone      TagStatus = "none"
	TagPending   TagStatus = "pending"
	TagConfirmed TagStatus = "confirmed"
	TagDenied    TagStatus = "denied"
)

type AccountType string

const (
	AccountUser      AccountType = "user"
	AccountArtist    AccountType = "artist"
	AccountModerator AccountType = "moderator"
)

func (a AccountType) Valid() bool {
	return a == AccountUser || a == AccountArtist || a == AccountModerator
}

type NotificationType string

const (
	NotificationCommunityIdentified NotificationType = "community_identified"
	NotificationModeratorConfirmed  NotificationType = "moderator_confirmed"
	NotificationModeratorReopened   NotificationType = "moderator_reopened"
	NotificationNewReviewSubmission NotificationType = "new_review_submission"
	NotificationArtistTagged        NotificationType = "artist_tagged"
	NotificationArtistConfirmed     NotificationType = "artist_confirmed"
	NotificationArtistDenied        NotificationType = "artist_denied"
	NotificationPostRemoved         NotificationType = "post_removed"
)

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// Value возвращает вклад голоса в рейтинг комментария.
func (d VoteDirection) Value() int {
	if d == VoteDown {
		return -1
	}
	return 1
}

type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportDismissed ReportStatus = "dismissed"
	ReportActioned  ReportStatus = "actioned"
)

type Post struct {
	ID                 string             `json:"id"`
	AuthorID           string             `json:"authorId"`
	Description        string             `json:"description"`
	Genre              string             `json:"genre"`
	VideoURL           string             `json:"videoUrl"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	VerifiedCommentID  *string            `json:"verifiedCommentId"`
	Version            int64              `json:"version"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// VerifiedComment возвращает ID выбранного комментария или пустую строку.
func (p *Post) VerifiedComment() string {
	if p.VerifiedCommentID == nil {
		return ""
	}
	return *p.VerifiedCommentID
}

type Comment struct {
	ID             string     `json:"id"`
	PostID         string     `json:"postId"`
	AuthorID       string     `json:"authorId"`
	ParentID       *string    `json:"parentId"`
	Content        string     `json:"content"`
	TaggedArtistID *string    `json:"taggedArtistId"`
	TagStatus      TagStatus  `json:"tagStatus"`
	VoteScore      int        `json:"voteScore"`
	IsIdentified   bool       `json:"isIdentified"`
	CreatedAt      time.Time  `json:"createdAt"`
	Replies        []*Comment `json:"replies,omitempty"`
}

type User struct {
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	AccountType    AccountType `json:"accountType"`
	VerifiedArtist bool        `json:"verifiedArtist"`
	Karma          int         `json:"karma"`
}

// CanActAsArtist — только верифицированный артист может подтверждать/отклонять отметки.
func (u *User) CanActAsArtist() bool {
	return u.AccountType == AccountArtist && u.VerifiedArtist
}

func (u *User) IsModerator() bool {
	return u.AccountType == AccountModerator
}

type Notification struct {
	ID                string           `json:"id"`
	RecipientUserID   string           `json:"recipientUserId"`
	TriggeredByUserID string           `json:"triggeredByUserId"`
	PostID            string           `json:"postId"`
	CommentID         string           `json:"commentId,omitempty"`
	Type              NotificationType `json:"type"`
	Read              bool             `json:"read"`
	DedupeKey         string           `json:"-"`
	CreatedAt         time.Time        `json:"createdAt"`
}

type Vote struct {
	CommentID string        `json:"commentId"`
	UserID    string        `json:"userId"`
	Direction VoteDirection `json:"direction"`
}

// KarmaEntry — запись журнала репутации. TransitionKey уникален.
type KarmaEntry struct {
	TransitionKey string    `json:"transitionKey"`
	UserID        string    `json:"userId"`
	PostID        string    `json:"postId"`
	CommentID     string    `json:"commentId"`
	Delta         int       `json:"delta"`
	ReversesKey   string    `json:"reversesKey,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Report struct {
	ID         string       `json:"id"`
	PostID     string       `json:"postId"`
	ReporterID string       `json:"reporterId"`
	Reason     string       `json:"reason"`
	Status     ReportStatus `json:"status"`
	ResolvedBy string       `json:"resolvedBy,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// VerificationUpdate описывает условную запись состояния верификации поста.
// Запись применяется только если текущая версия поста равна ExpectedVersion.
type VerificationUpdate struct {
	PostID            string
	ExpectedVersion   int64
	Status            VerificationStatus
	VerifiedCommentID *string
	UpdatedAt         time.Time
}
