package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
)

// DefaultRedisPrefix namespaces session keys when no prefix is configured.
const DefaultRedisPrefix = "buscacursos:session:"

// RedisStore keeps sessions as JSON strings with an optional expiry.
// Get and Put are independent commands; turns of one conversation are only
// serialized by the in-process session.Locker.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewRedis connects to the server at rawURL (redis:// or rediss://) and
// verifies the connection.
func NewRedis(ctx context.Context, rawURL, prefix string, ttl time.Duration, m *metrics.Metrics) (*RedisStore, error) {
	if rawURL == "" {
		return nil, errors.New("storage: redis url is empty")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: ping redis: %w", err)
	}

	return NewRedisWithClient(client, prefix, ttl, m), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string, ttl time.Duration, m *metrics.Metrics) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, metrics: m}
}

func (s *RedisStore) key(conversationID string) string {
	return s.prefix + conversationID
}

// Get implements session.Store.
func (s *RedisStore) Get(ctx context.Context, conversationID string) (*session.Session, error) {
	raw, err := s.client.Get(ctx, s.key(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			recordOp(s.metrics, BackendRedis, "get", nil, true)
			return nil, nil
		}
		recordOp(s.metrics, BackendRedis, "get", err, false)
		return nil, fmt.Errorf("redis get %s: %w", s.key(conversationID), err)
	}

	sess, err := session.Unmarshal(raw)
	recordOp(s.metrics, BackendRedis, "get", err, false)
	return sess, err
}

// Put implements session.Store. Each write refreshes the expiry.
func (s *RedisStore) Put(ctx context.Context, conversationID string, sess *session.Session) error {
	payload, err := session.Marshal(sess)
	if err != nil {
		recordOp(s.metrics, BackendRedis, "put", err, false)
		return err
	}

	err = s.client.Set(ctx, s.key(conversationID), payload, s.ttl).Err()
	recordOp(s.metrics, BackendRedis, "put", err, false)
	if err != nil {
		return fmt.Errorf("redis set %s: %w", s.key(conversationID), err)
	}
	return nil
}

// Ping implements session.Pinger.
func (s *RedisStore) Ping(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()
	recordOp(s.metrics, BackendRedis, "ping", err, false)
	return err
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
