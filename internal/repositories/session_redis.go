package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore stores sessions in Redis as JSON values that expire with the session.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a store using client, namespacing keys under prefix.
func NewRedisSessionStore(client *redis.Client, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = "ytdash"
	}
	return &RedisSessionStore{client: client, prefix: prefix}
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + ":session:" + id
}

func (r *RedisSessionStore) sequenceKey() string {
	return r.prefix + ":session:sequence"
}

// Create stores a new session, assigning its ID and sequence.
func (r *RedisSessionStore) Create(ctx context.Context, s *models.Session) error {
	if s.ID == "" {
		s.ID = shared.GenerateID()
	}

	sequence, err := r.client.Incr(ctx, r.sequenceKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	s.Sequence = int(sequence)

	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ok, err := r.write(ctx, s, false)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	return nil
}

// Get retrieves a session by ID.
func (r *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	if s.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	return &s, nil
}

// Update overwrites an existing session, keeping its remaining lifetime.
func (r *RedisSessionStore) Update(ctx context.Context, s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	s.UpdatedAt = time.Now().UTC()

	ok, err := r.write(ctx, s, true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, s.ID)
	}
	return nil
}

// Delete removes a session by ID. Deleting an unknown session is not an error.
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// write stores s with a TTL ending at s.ExpiresAt. With existing set the key
// must already be present (SET XX), otherwise it must be absent (SET NX).
func (r *RedisSessionStore) write(ctx context.Context, s *models.Session, existing bool) (bool, error) {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return false, fmt.Errorf("%w: session %s already expired", shared.ErrInvalidInput, s.ID)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("failed to encode session: %w", err)
	}

	mode := "NX"
	if existing {
		mode = "XX"
	}

	err = r.client.SetArgs(ctx, r.key(s.ID), data, redis.SetArgs{Mode: mode, TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to write session: %w", err)
	}
	return true, nil
}
