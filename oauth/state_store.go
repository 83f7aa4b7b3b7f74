package oauth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gobeaver/slack-auth/cache"
	"github.com/gobeaver/slack-auth/krypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateStore keeps pending authorizations between the authorize redirect and
// the callback.
type StateStore interface {
	// Issue records session and returns the state value to send to Slack.
	Issue(ctx context.Context, session *SessionData) (string, error)
	// Consume returns the session for state. Failures match ErrInvalidState.
	Consume(ctx context.Context, state string) (*SessionData, error)
	// Ping checks the backing storage
	Ping(ctx context.Context) error
}

// StateGenerator generates state values
type StateGenerator interface {
	Generate() (string, error)
}

// SecureStateGenerator generates 32 random bytes, base64url encoded
type SecureStateGenerator struct{}

// Generate implements StateGenerator
func (SecureStateGenerator) Generate() (string, error) {
	return krypto.GenerateURLSafeToken(32)
}

// UUIDStateGenerator generates random UUIDs
type UUIDStateGenerator struct{}

// Generate implements StateGenerator
func (UUIDStateGenerator) Generate() (string, error) {
	return uuid.NewString(), nil
}

func newStateGenerator(name string) (StateGenerator, error) {
	switch name {
	case "secure", "":
		return SecureStateGenerator{}, nil
	case "uuid":
		return UUIDStateGenerator{}, nil
	}
	return nil, fmt.Errorf("%w: unknown state generator: %s", ErrInvalidConfig, name)
}

const stateKeyPrefix = "oauth_state:"

// CacheStateStore stores sessions in a cache. Each state can be consumed
// once; concurrent callbacks with the same state see at most one success.
type CacheStateStore struct {
	cache cache.Cache
	gen   StateGenerator
}

// NewCacheStateStore creates a store over c. A nil gen uses SecureStateGenerator.
func NewCacheStateStore(c cache.Cache, gen StateGenerator) *CacheStateStore {
	if gen == nil {
		gen = SecureStateGenerator{}
	}
	return &CacheStateStore{cache: c, gen: gen}
}

// Issue implements StateStore
func (s *CacheStateStore) Issue(ctx context.Context, session *SessionData) (string, error) {
	state, err := s.gen.Generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	session.State = state

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return "", fmt.Errorf("%w: session already expired", ErrInvalidState)
	}
	if err := s.cache.Set(ctx, stateKeyPrefix+state, data, ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return state, nil
}

// Consume implements StateStore. The session is removed whether or not it
// turns out to be valid.
func (s *CacheStateStore) Consume(ctx context.Context, state string) (*SessionData, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: state missing", ErrInvalidState)
	}
	data, err := s.cache.GetDel(ctx, stateKeyPrefix+state)
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: corrupt session: %v", ErrInvalidState, err)
	}
	if subtle.ConstantTimeCompare([]byte(session.State), []byte(state)) != 1 {
		return nil, fmt.Errorf("%w: state mismatch", ErrInvalidState)
	}
	if session.IsExpired() {
		return nil, fmt.Errorf("%w: session expired", ErrInvalidState)
	}
	return &session, nil
}

// Ping implements StateStore
func (s *CacheStateStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// SignedStateStore carries the session inside the state value as an HS256
// token, so no server side storage is needed. A signed state stays valid
// until it expires and can be replayed within that window. It cannot carry
// a PKCE verifier.
type SignedStateStore struct {
	key []byte
}

// NewSignedStateStore creates a store signing with key.
func NewSignedStateStore(key []byte) (*SignedStateStore, error) {
	if len(key) < krypto.MinHS256KeyLength {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, krypto.ErrWeakKey)
	}
	return &SignedStateStore{key: append([]byte(nil), key...)}, nil
}

type stateClaims struct {
	jwt.RegisteredClaims
	Provider string            `json:"prv"`
	Metadata map[string]string `json:"md,omitempty"`
}

// Issue implements StateStore
func (s *SignedStateStore) Issue(_ context.Context, session *SessionData) (string, error) {
	if session.PKCEChallenge != nil {
		return "", fmt.Errorf("%w: signed state cannot carry a PKCE verifier", ErrInvalidConfig)
	}
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		Provider: session.Provider,
		Metadata: session.Metadata,
	}
	state, err := krypto.SignHS256(claims, s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	session.State = state
	return state, nil
}

// Consume implements StateStore
func (s *SignedStateStore) Consume(_ context.Context, state string) (*SessionData, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: state missing", ErrInvalidState)
	}
	var claims stateClaims
	if err := krypto.ParseHS256(state, &claims, s.key); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: session expired", ErrInvalidState)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: state has no expiry", ErrInvalidState)
	}

	session := &SessionData{
		State:     state,
		ExpiresAt: claims.ExpiresAt.Time,
		Provider:  claims.Provider,
		Metadata:  claims.Metadata,
	}
	if claims.IssuedAt != nil {
		session.CreatedAt = claims.IssuedAt.Time
	}
	return session, nil
}

// Ping implements StateStore
func (s *SignedStateStore) Ping(context.Context) error {
	return nil
}
