package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateManager issues and validates the OAuth state parameter as a short-lived signed JWT,
// so the callback can be checked without server-side storage.
type StateManager struct {
	secret []byte
	ttl    time.Duration
}

// NewStateManager builds a new manager.
func NewStateManager(secret string, ttl time.Duration) *StateManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateManager{secret: []byte(secret), ttl: ttl}
}

// StateClaims describes the state payload.
type StateClaims struct {
	Nonce    string `json:"nonce"`
	Redirect string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a fresh state carrying the post-login redirect target.
func (sm *StateManager) Issue(redirect string) (string, error) {
	now := time.Now()
	claims := &StateClaims{
		Nonce:    uuid.NewString(),
		Redirect: redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sm.secret)
}

// Verify validates the state and returns its claims.
func (sm *StateManager) Verify(state string) (*StateClaims, error) {
	parsed, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return sm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*StateClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid state claims")
	}
	return claims, nil
}
