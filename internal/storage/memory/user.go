package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/user"

	"golang.org/x/crypto/bcrypt"
)

type UserMemoryStorage struct {
	mu        sync.Mutex
	users     map[string]*model.User // id -> user
	usernames map[string]string      // username в нижнем регистре -> id
	emails    map[string]string      // email -> id
	passwords map[string]string      // id -> bcrypt hash
	nextId    int
}

func NewUserMemoryStorage() *UserMemoryStorage {
	return &UserMemoryStorage{
		users:     make(map[string]*model.User),
		usernames: make(map[string]string),
		emails:    make(map[string]string),
		passwords: make(map[string]string),
		nextId:    1,
	}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}

func (s *UserMemoryStorage) RegisterUser(ctx context.Context, username, email, password string) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	if _, exists := s.usernames[key]; exists {
		return nil, fmt.Errorf("user %s: %w", username, user.ErrUserExists)
	}
	if email != "" {
		if _, exists := s.emails[email]; exists {
			return nil, fmt.Errorf("email %s: %w", email, user.ErrUserExists)
		}
	}

	id := strconv.Itoa(s.nextId)
	s.nextId++

	u := &model.User{
		ID:          id,
		Username:    username,
		Email:       email,
		AccountType: model.AccountUser,
	}

	s.users[id] = u
	s.usernames[key] = id
	if email != "" {
		s.emails[email] = id
	}
	s.passwords[id] = string(hashedPassword)

	return cloneUser(u), nil
}

func (s *UserMemoryStorage) LoginUser(ctx context.Context, username, password string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.usernames[strings.ToLower(username)]
	if !exists {
		return nil, user.ErrInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword([]byte(s.passwords[id]), []byte(password))
	if err != nil {
		return nil, user.ErrInvalidCredentials
	}

	return cloneUser(s.users[id]), nil
}

func (s *UserMemoryStorage) GetUserById(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[id]
	if !exists {
		return nil, user.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *UserMemoryStorage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.usernames[strings.ToLower(username)]
	if !exists {
		return nil, user.ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *UserMemoryStorage) ListModerators(ctx context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moderators := []*model.User{}
	for _, u := range s.users {
		if u.IsModerator() {
			moderators = append(moderators, cloneUser(u))
		}
	}
	sort.Slice(moderators, func(i, j int) bool {
		return lessID(moderators[i].ID, moderators[j].ID)
	})
	return moderators, nil
}

func (s *UserMemoryStorage) SetAccountType(ctx context.Context, id string, accountType model.AccountType, verifiedArtist bool) (*model.User, error) {
	if !accountType.Valid() {
		return nil, fmt.Errorf("unknown account type %q", accountType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[id]
	if !exists {
		return nil, user.ErrUserNotFound
	}

	u.AccountType = accountType
	// флаг верификации имеет смысл только для артистов
	u.VerifiedArtist = accountType == model.AccountArtist && verifiedArtist
	return cloneUser(u), nil
}

func (s *UserMemoryStorage) SetKarma(ctx context.Context, id string, karma int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[id]
	if !exists {
		return user.ErrUserNotFound
	}
	u.Karma = karma
	return nil
}
