package user

import (
	"context"
	"errors"

	"github.com/VitaminP8/trackid/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid password or username")
)

type UserStorage interface {
	RegisterUser(ctx context.Context, username, email, password string) (*model.User, error)
	LoginUser(ctx context.Context, username, password string) (*model.User, error)
	GetUserById(ctx context.Context, id string) (*model.User, error)
	// GetUserByUsername ищет пользователя без учета регистра.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListModerators(ctx context.Context) ([]*model.User, error)
	SetAccountType(ctx context.Context, id string, accountType model.AccountType, verifiedArtist bool) (*model.User, error)
	SetKarma(ctx context.Context, id string, karma int) error
}
