package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// ErrSessionNotFound is returned for unknown or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore maps opaque session tokens to account ids.
type SessionStore interface {
	Create(ctx context.Context, accountID string) (string, error)
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// NewSessionToken returns 32 random bytes, base64url encoded.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// tokenDigest is the storage key for a token; raw tokens are never persisted.
func tokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RedisSessionStore keeps sessions in Redis with a TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore constructs the store. Keys are prefix followed by the token digest.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl, prefix: prefix}
}

func (s *RedisSessionStore) Create(ctx context.Context, accountID string) (string, error) {
	token, err := NewSessionToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.prefix+tokenDigest(token), accountID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrSessionNotFound
	}
	accountID, err := s.client.Get(ctx, s.prefix+tokenDigest(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	return accountID, err
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.prefix+tokenDigest(token)).Err()
}

// MemorySessionStore keeps sessions in process memory. Expired sessions are dropped when
// read and swept on Create, so abandoned sessions do not accumulate.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memorySession
}

type memorySession struct {
	accountID string
	expiresAt time.Time
}

// NewMemorySessionStore constructs the store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{ttl: ttl, now: time.Now, sessions: map[string]memorySession{}}
}

func (s *MemorySessionStore) Create(_ context.Context, accountID string) (string, error) {
	token, err := NewSessionToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.prune(now)
	s.sessions[tokenDigest(token)] = memorySession{accountID: accountID, expiresAt: now.Add(s.ttl)}
	return token, nil
}

// prune must be called with the lock held.
func (s *MemorySessionStore) prune(now time.Time) {
	for key, session := range s.sessions {
		if !now.Before(session.expiresAt) {
			delete(s.sessions, key)
		}
	}
}

func (s *MemorySessionStore) Get(_ context.Context, token string) (string, error) {
	key := tokenDigest(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !s.now().Before(session.expiresAt) {
		delete(s.sessions, key)
		return "", ErrSessionNotFound
	}
	return session.accountID, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenDigest(token))
	return nil
}
