// ABOUTME: Seeded user accounts for the development backend
// ABOUTME: Passwords are stored as bcrypt hashes and checked on login

package devserver

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	errUnknownUser   = errors.New("unknown user")
	errWrongPassword = errors.New("wrong password")
)

// UserSeed describes an account created when the server starts
type UserSeed struct {
	Username           string `koanf:"username"`
	Password           string `koanf:"password"`
	Admin              bool   `koanf:"admin"`
	CanGenerateTokens  bool   `koanf:"canGenerateTokens"`
	MaxTokenCount      int    `koanf:"maxTokenCount"`
	MustChangePassword bool   `koanf:"mustChangePassword"`
}

// DefaultUsers covers each login outcome: an admin, a regular user and an
// account whose password has expired
func DefaultUsers() []UserSeed {
	return []UserSeed{
		{Username: "admin", Password: "admin", Admin: true, CanGenerateTokens: true, MaxTokenCount: 10},
		{Username: "user", Password: "user", MaxTokenCount: 0},
		{Username: "expired", Password: "expired", CanGenerateTokens: true, MaxTokenCount: 3, MustChangePassword: true},
	}
}

type user struct {
	username           string
	passwordHash       []byte
	admin              bool
	canGenerateTokens  bool
	maxTokenCount      int
	mustChangePassword bool
}

type userStore struct {
	mu    sync.RWMutex
	cost  int
	users map[string]*user
}

func newUserStore(seeds []UserSeed, cost int) (*userStore, error) {
	s := &userStore{cost: cost, users: make(map[string]*user, len(seeds))}
	for _, seed := range seeds {
		if seed.Username == "" {
			return nil, errors.New("user seed without username")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", seed.Username, err)
		}
		s.users[seed.Username] = &user{
			username:           seed.Username,
			passwordHash:       hash,
			admin:              seed.Admin,
			canGenerateTokens:  seed.CanGenerateTokens,
			maxTokenCount:      seed.MaxTokenCount,
			mustChangePassword: seed.MustChangePassword,
		}
	}
	return s, nil
}

// authenticate returns a copy of the user when the password matches
func (s *userStore) authenticate(username, password string) (user, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return user{}, errUnknownUser
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return user{}, errWrongPassword
	}
	return *u, nil
}

func (s *userStore) get(username string) (user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return user{}, false
	}
	return *u, true
}

// setPassword replaces the password and lifts the forced change
func (s *userStore) setPassword(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return errUnknownUser
	}
	u.passwordHash = hash
	u.mustChangePassword = false
	return nil
}

func (s *userStore) list() []user {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out
}
