package auth

import (
	"strings"
	"sync"
	"time"
)

// MemoryUserRepo is a threadsafe in-memory storage.
// Администратор сервиса задаётся конфигурацией, поэтому постоянное хранилище не нужно.
// ID counter starts from 1.
type MemoryUserRepo struct {
	mu     sync.RWMutex
	users  map[string]*User // key = lowercase(username)
	nextID uint64
}

// NewMemoryUserRepo returns an empty repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users:  make(map[string]*User),
		nextID: 1,
	}
}

// GetUserByUsername retrieves user by case-insensitive username.
func (r *MemoryUserRepo) GetUserByUsername(username string) (*User, error) {
	key := normalize(username)
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[key]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// CreateUser inserts a new user if username not present.
func (r *MemoryUserRepo) CreateUser(username string, passwordHash string, isAdmin bool) (*User, error) {
	key := normalize(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[key]; exists {
		return nil, ErrUserExists
	}

	user := &User{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		IsAdmin:      isAdmin,
	}
	r.nextID++
	r.users[key] = user

	copied := *user
	return &copied, nil
}

// ValidateCredentials checks the bcrypt hash and records the login time.
func (r *MemoryUserRepo) ValidateCredentials(username, password string) (*User, error) {
	key := normalize(username)
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[key]
	if !ok || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	user.LastLogin = time.Now()

	copied := *user
	return &copied, nil
}

// Helper to normalise usernames.
func normalize(username string) string {
	return strings.ToLower(username)
}
