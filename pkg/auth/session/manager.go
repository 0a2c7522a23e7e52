package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tapcards-backend/pkg/config"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Manager stores one refresh token per access token id (the JWT jti).
// The stored value is "<user_id>.<token>" so a refresh can recover the owner.
type Manager struct {
	store sessionStore
	ttl   time.Duration
}

// AccessSessionChecker is the read-only surface used by the auth middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

func NewManager(store sessionStore, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	if ttl <= cfg.AccessTokenTTL() {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, cfg.AccessTokenTTL())
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Generate issues a refresh token bound to accessID and userID.
func (m *Manager) Generate(ctx context.Context, accessID string, userID int64) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	if userID <= 0 {
		return "", fmt.Errorf("user id is required")
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), encode(userID, token), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate swaps the session of oldAccessID for a fresh one and returns the owner.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (newAccessID, newToken string, userID int64, err error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", 0, ErrInvalidRefreshToken
	}

	key := m.store.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", "", 0, ErrInvalidRefreshToken
		}
		return "", "", 0, err
	}

	userID, token, ok := decode(stored)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
		return "", "", 0, ErrInvalidRefreshToken
	}

	newAccessID = NewAccessID()
	newToken, err = m.Generate(ctx, newAccessID, userID)
	if err != nil {
		return "", "", 0, err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return "", "", 0, err
	}
	return newAccessID, newToken, userID, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID produces the identifier used as JWT jti and session key.
func NewAccessID() string {
	return uuid.NewString()
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func encode(userID int64, token string) string {
	return strconv.FormatInt(userID, 10) + "." + token
}

func decode(stored string) (int64, string, bool) {
	rawID, token, ok := strings.Cut(stored, ".")
	if !ok || token == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, token, true
}
