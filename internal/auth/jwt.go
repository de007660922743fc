package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "mmo-worldgen"

// минимальная длина секрета HS256
const minSecretLen = 32

var ErrInvalidToken = errors.New("недействительный токен")

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет JWT токены администраторов
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
// Пустой secret заменяется случайным: токены тогда не переживают перезапуск.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	key := []byte(secret)
	if secret == "" {
		key = make([]byte, minSecretLen)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("генерация JWT секрета: %w", err)
		}
	}
	if len(key) < minSecretLen {
		return nil, fmt.Errorf("secret key must be at least %d bytes", minSecretLen)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: key, ttl: ttl, now: time.Now}, nil
}

// Generate creates a signed token for the given user and returns its expiry
func (m *TokenManager) Generate(user *User) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := &Claims{
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Validate checks token validity and returns its claims
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureSecret generates a new secure secret key
func GenerateSecureSecret() (string, error) {
	b := make([]byte, minSecretLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
