package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

const (
	sessionKeyPrefix          = "session:"
	principalSessionKeyPrefix = "principal_sessions:"
)

// SessionRepository keeps the live session registry in Redis so sign-out and
// revocation take effect on the next request.
type SessionRepository struct {
	client redis.UniversalClient
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(client redis.UniversalClient) *SessionRepository {
	return &SessionRepository{client: client}
}

// Save registers a session for principalID until ttl elapses.
func (r *SessionRepository) Save(ctx context.Context, sessionID, principalID string, ttl time.Duration) error {
	setKey := principalSessionKeyPrefix + principalID
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+sessionID, principalID, ttl)
	pipe.SAdd(ctx, setKey, sessionID)
	pipe.Expire(ctx, setKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session %s: %w", sessionID, err)
	}
	return nil
}

// PrincipalFor returns the principal owning a live session.
func (r *SessionRepository) PrincipalFor(ctx context.Context, sessionID string) (string, error) {
	principalID, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("redis get session %s: %w", sessionID, err)
	}
	return principalID, nil
}

// Delete removes a single session.
func (r *SessionRepository) Delete(ctx context.Context, sessionID, principalID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	if principalID != "" {
		pipe.SRem(ctx, principalSessionKeyPrefix+principalID, sessionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session %s: %w", sessionID, err)
	}
	return nil
}

// DeleteAllForPrincipal removes every session of a principal.
func (r *SessionRepository) DeleteAllForPrincipal(ctx context.Context, principalID string) error {
	setKey := principalSessionKeyPrefix + principalID
	ids, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis list sessions for %s: %w", principalID, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}
	keys = append(keys, setKey)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete sessions for %s: %w", principalID, err)
	}
	return nil
}
