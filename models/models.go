package models

import (
	"time"

	"github.com/jinzhu/gorm"
)

type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	// UsernameKey — имя в нижнем регистре, уникальность без учета регистра
	UsernameKey    string  `gorm:"unique_index;not null"`
	Email          *string `gorm:"unique"`
	Password       string
	AccountType    string `gorm:"not null;default:'user'"`
	VerifiedArtist bool
	Karma          int
	Posts          []Post    `gorm:"foreignkey:UserID"`
	Comments       []Comment `gorm:"foreignkey:UserID"`
}

type Post struct {
	gorm.Model
	Description        string
	Genre              string
	VideoURL           string
	UserID             uint   `gorm:"index"`
	VerificationStatus string `gorm:"not null;default:'unverified';index"`
	VerifiedCommentID  *uint
	Version            int64     `gorm:"not null;default:1"`
	Comments           []Comment `gorm:"foreignkey:PostID"`
}

type Comment struct {
	gorm.Model
	Content        string `gorm:"size:2000"`
	PostID         uint   `gorm:"index"`
	UserID         uint
	ParentID       *uint
	TaggedArtistID *uint
	TagStatus      string    `gorm:"not null;default:'none'"`
	Children       []Comment `gorm:"foreignkey:ParentID"`
}

type Vote struct {
	ID        uint   `gorm:"primary_key"`
	CommentID uint   `gorm:"unique_index:idx_vote_comment_user"`
	UserID    uint   `gorm:"unique_index:idx_vote_comment_user"`
	PostID    uint   `gorm:"index"`
	Direction string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Notification struct {
	ID            uint `gorm:"primary_key"`
	RecipientID   uint `gorm:"index"`
	TriggeredByID uint
	PostID        uint `gorm:"index"`
	CommentID     *uint
	Type          string `gorm:"not null"`
	Read          bool
	DedupeKey     string `gorm:"unique_index"`
	CreatedAt     time.Time
}

// KarmaEntry — запись журнала кармы. TransitionKey уникален, у начисления
// может быть не больше одной отмены (уникальный ReversesKey, NULL у начислений).
type KarmaEntry struct {
	ID            uint    `gorm:"primary_key"`
	TransitionKey string  `gorm:"unique_index;not null"`
	UserID        uint    `gorm:"index"`
	PostID        uint
	CommentID     uint
	Delta         int
	ReversesKey   *string `gorm:"unique_index"`
	CreatedAt     time.Time
}

type Report struct {
	ID         uint `gorm:"primary_key"`
	PostID     uint `gorm:"index"`
	ReporterID uint
	Reason     string
	Status     string `gorm:"not null;index"`
	ResolvedBy *uint
	CreatedAt  time.Time
}

// All — модели в порядке миграции.
func All() []interface{} {
	return []interface{}{
		&User{}, &Post{}, &Comment{}, &Vote{}, &Notification{}, &KarmaEntry{}, &Report{},
	}
}
