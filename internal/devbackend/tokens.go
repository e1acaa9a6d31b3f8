package devbackend

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTManager issues and validates HS256 access tokens carrying the user id.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	nowFunc    func() time.Time
}

// NewJWTManager constructs a manager with the provided secret and expiration.
func NewJWTManager(secret string, expiration time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		expiration: expiration,
		issuer:     "repairlink-dev",
		nowFunc:    time.Now,
	}
}

type accessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Generate creates a signed access token for the user.
func (m *JWTManager) Generate(userID uuid.UUID) (string, error) {
	now := m.nowFunc().UTC()
	claims := accessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and validates the token, returning the user id when valid.
func (m *JWTManager) Validate(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid token claims")
	}
	return uuid.Parse(claims.UserID)
}

// ErrRefreshTokenInvalid is returned for unknown, revoked, or expired
// refresh tokens.
var ErrRefreshTokenInvalid = errors.New("refresh token invalid")

type refreshEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// RefreshTokenStore issues and rotates opaque refresh tokens in memory.
// A dev-only convenience; restarting the backend signs everyone out.
type RefreshTokenStore struct {
	ttl     time.Duration
	nowFunc func() time.Time

	mu     sync.Mutex
	tokens map[string]refreshEntry
}

// NewRefreshTokenStore constructs a store with the given token lifetime.
func NewRefreshTokenStore(ttl time.Duration) *RefreshTokenStore {
	return &RefreshTokenStore{
		ttl:     ttl,
		nowFunc: time.Now,
		tokens:  make(map[string]refreshEntry),
	}
}

// Issue mints a new refresh token for the user.
func (s *RefreshTokenStore) Issue(userID uuid.UUID) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)

	s.mu.Lock()
	s.tokens[token] = refreshEntry{userID: userID, expiresAt: s.nowFunc().Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

// Rotate invalidates the presented token and issues a replacement for the
// same user.
func (s *RefreshTokenStore) Rotate(token string) (uuid.UUID, string, error) {
	s.mu.Lock()
	entry, ok := s.tokens[token]
	if ok {
		delete(s.tokens, token)
	}
	s.mu.Unlock()

	if !ok || s.nowFunc().After(entry.expiresAt) {
		return uuid.Nil, "", ErrRefreshTokenInvalid
	}

	replacement, err := s.Issue(entry.userID)
	if err != nil {
		return uuid.Nil, "", err
	}
	return entry.userID, replacement, nil
}

// Revoke drops the token if present.
func (s *RefreshTokenStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
