package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Store is the key/value backend for sessions and reset tokens.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Lookup(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, keys ...string) error
}

const (
	sessionPrefix = "session:"
	resetPrefix   = "password_reset:"
)

var ErrSessionRevoked = errors.New("session revoked")

// Sessions ties signed tokens to server-side session entries so that a
// logout revokes the token before it expires.
type Sessions struct {
	tokens *TokenManager
	store  Store
}

func NewSessions(tokens *TokenManager, store Store) *Sessions {
	return &Sessions{tokens: tokens, store: store}
}

// Start issues a token for userID and records its session.
func (s *Sessions) Start(ctx context.Context, userID uint) (string, error) {
	token, jti, err := s.tokens.Issue(userID)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, sessionPrefix+jti, userID, s.tokens.Expiry()); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Authenticate returns the user id behind a live token.
func (s *Sessions) Authenticate(ctx context.Context, token string) (uint, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return 0, err
	}
	value, ok, err := s.store.Lookup(ctx, sessionPrefix+claims.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok || value != strconv.FormatUint(uint64(claims.UserID), 10) {
		return 0, ErrSessionRevoked
	}
	return claims.UserID, nil
}

// End revokes the session behind token. Unknown tokens are ignored.
func (s *Sessions) End(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return s.store.Del(ctx, sessionPrefix+claims.ID)
}

func (s *Sessions) SaveResetToken(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return s.store.Set(ctx, resetPrefix+token, userID, ttl)
}

// ConsumeResetToken returns the user id for token and deletes it.
func (s *Sessions) ConsumeResetToken(ctx context.Context, token string) (uint, bool, error) {
	value, ok, err := s.store.Lookup(ctx, resetPrefix+token)
	if err != nil || !ok {
		return 0, false, err
	}
	if err := s.store.Del(ctx, resetPrefix+token); err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uint(id), true, nil
}
