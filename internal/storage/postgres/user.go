package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/user"
	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"

	"golang.org/x/crypto/bcrypt"
)

type UserPostgresStorage struct{}

func NewUserPostgresStorage() *UserPostgresStorage {
	return &UserPostgresStorage{}
}

func toUser(u *models.User) *model.User {
	return &model.User{
		ID:             fmt.Sprint(u.ID),
		Username:       u.Username,
		Email:          derefString(u.Email),
		AccountType:    model.AccountType(u.AccountType),
		VerifiedArtist: u.VerifiedArtist,
		Karma:          u.Karma,
	}
}

func (s *UserPostgresStorage) RegisterUser(ctx context.Context, username, email, password string) (*model.User, error) {
	key := strings.ToLower(username)

	// проверка - существует ли такой пользователь
	query := DB.Model(&models.User{}).Where("username_key = ?", key)
	if email != "" {
		query = query.Or("email = ?", email)
	}

	var count int
	err := query.Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("user %s: %w", username, user.ErrUserExists)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		Username:    username,
		UsernameKey: key,
		Email:       optionalString(email),
		Password:    string(hashedPassword),
		AccountType: string(model.AccountUser),
	}

	err = DB.Create(u).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return toUser(u), nil
}

func (s *UserPostgresStorage) LoginUser(ctx context.Context, username, password string) (*model.User, error) {
	var u models.User
	err := DB.Where("username_key = ?", strings.ToLower(username)).First(&u).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, user.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	if err != nil {
		return nil, user.ErrInvalidCredentials
	}

	return toUser(&u), nil
}

func (s *UserPostgresStorage) GetUserById(ctx context.Context, id string) (*model.User, error) {
	pk, ok := parseID(id)
	if !ok {
		return nil, user.ErrUserNotFound
	}

	var u models.User
	err := DB.First(&u, pk).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUser(&u), nil
}

func (s *UserPostgresStorage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u models.User
	err := DB.Where("username_key = ?", strings.ToLower(username)).First(&u).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUser(&u), nil
}

func (s *UserPostgresStorage) ListModerators(ctx context.Context) ([]*model.User, error) {
	var users []models.User
	err := DB.Where("account_type = ?", string(model.AccountModerator)).Order("id").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list moderators: %w", err)
	}

	results := make([]*model.User, 0, len(users))
	for i := range users {
		results = append(results, toUser(&users[i]))
	}
	return results, nil
}

func (s *UserPostgresStorage) SetAccountType(ctx context.Context, id string, accountType model.AccountType, verifiedArtist bool) (*model.User, error) {
	if !accountType.Valid() {
		return nil, fmt.Errorf("unknown account type %q", accountType)
	}

	pk, ok := parseID(id)
	if !ok {
		return nil, user.ErrUserNotFound
	}

	res := DB.Model(&models.User{}).Where("id = ?", pk).UpdateColumns(map[string]interface{}{
		"account_type":    string(accountType),
		"verified_artist": accountType == model.AccountArtist && verifiedArtist,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update account type: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, user.ErrUserNotFound
	}
	return s.GetUserById(ctx, id)
}

func (s *UserPostgresStorage) SetKarma(ctx context.Context, id string, karma int) error {
	pk, ok := parseID(id)
	if !ok {
		return user.ErrUserNotFound
	}

	res := DB.Model(&models.User{}).Where("id = ?", pk).UpdateColumn("karma", karma)
	if res.Error != nil {
		return fmt.Errorf("failed to update karma: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
