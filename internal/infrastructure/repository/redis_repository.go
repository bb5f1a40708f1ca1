package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopify-reorder/internal/domain"
	"shopify-reorder/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	stateKeyPrefix   = "oauth_state:"
)

// RedisRepository implements SessionStore and StateStore on Redis. Entries expire
// through Redis TTLs.
type RedisRepository struct {
	rdb *redis.Client
	now func() time.Time
}

var (
	_ ports.SessionStore = (*RedisRepository)(nil)
	_ ports.StateStore   = (*RedisRepository)(nil)
)

// NewRedisRepository creates a store on an existing client.
func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb, now: time.Now}
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Ping reports whether Redis is reachable.
func (s *RedisRepository) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisRepository) ttl(expiresAt time.Time) (time.Duration, error) {
	if expiresAt.IsZero() {
		return 0, errors.New("expiry is required")
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return 0, errors.New("already expired")
	}
	return ttl, nil
}

// SaveSession stores or replaces a session
func (s *RedisRepository) SaveSession(ctx context.Context, session *domain.Session) error {
	ttl, err := s.ttl(session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id
func (s *RedisRepository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session; deleting an unknown id is not an error
func (s *RedisRepository) DeleteSession(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SaveState stores an OAuth nonce until it expires
func (s *RedisRepository) SaveState(ctx context.Context, state *domain.OAuthState) error {
	ttl, err := s.ttl(state.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode oauth state: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, stateKeyPrefix+state.State, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	if !ok {
		return errors.New("oauth state already exists")
	}
	return nil
}

// TakeState atomically reads and deletes an OAuth nonce
func (s *RedisRepository) TakeState(ctx context.Context, state string) (*domain.OAuthState, error) {
	raw, err := s.rdb.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth state: %w", err)
	}
	var out domain.OAuthState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode oauth state: %w", err)
	}
	return &out, nil
}
