package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/logging"
)

// Authenticator проверяет учётные данные и выдаёт JWT токены
type Authenticator struct {
	users  UserRepository
	tokens *TokenManager
}

// LoginResult ответ на успешный вход
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
}

// NewAuthenticator создаёт аутентификатор
func NewAuthenticator(users UserRepository, tokens *TokenManager) *Authenticator {
	return &Authenticator{users: users, tokens: tokens}
}

// NewFromConfig создаёт аутентификатор с единственным администратором из конфигурации.
// Без admin_password_hash вход невозможен, но проверка токенов работает.
func NewFromConfig(cfg config.AuthConfig) (*Authenticator, error) {
	secret := cfg.GetJWTSecret()
	if secret == "" {
		logging.Warn("⚠️ JWT секрет не задан: используется случайный, токены не переживут перезапуск")
	}

	tokens, err := NewTokenManager(secret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	users := NewMemoryUserRepo()
	if cfg.AdminPasswordHash != "" {
		if _, err := users.CreateUser(cfg.AdminUser, cfg.AdminPasswordHash, true); err != nil {
			return nil, fmt.Errorf("создание администратора: %w", err)
		}
	} else {
		logging.Warn("⚠️ admin_password_hash не задан: административный вход отключён")
	}

	return NewAuthenticator(users, tokens), nil
}

// Login проверяет пароль и выдаёт токен
func (a *Authenticator) Login(username, password string) (*LoginResult, error) {
	user, err := a.users.ValidateCredentials(username, password)
	if err != nil {
		logging.Warn("🔐 Неудачный вход: user=%s", username)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, expires, err := a.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("выпуск токена: %w", err)
	}

	logging.Info("🔐 Вход выполнен: user=%s admin=%v", user.Username, user.IsAdmin)
	return &LoginResult{
		Token:     token,
		ExpiresAt: expires,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
	}, nil
}

// Verify проверяет токен
func (a *Authenticator) Verify(token string) (*Claims, error) {
	return a.tokens.Validate(token)
}
