package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	backend "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "zchat:history:"

// RedisStore keeps each user's history in a redis list.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	limit  int
}

// RedisOption customises a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires a user's history ttl after their last message.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLimit caps the number of entries kept per user.
func WithLimit(limit int) RedisOption {
	return func(s *RedisStore) {
		s.limit = limit
	}
}

// NewRedisStore connects to the redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Append pushes entries onto the user's list.
func (s *RedisStore) Append(ctx context.Context, userID string, entries ...Entry) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if len(entries) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return errors.Wrap(err, "failed to marshal history entry")
		}
		values = append(values, data)
	}

	key := s.key(userID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if s.limit > 0 {
		pipe.LTrim(ctx, key, int64(-s.limit), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to append history to redis")
	}
	return nil
}

// Recent reads the newest entries for the user.
func (s *RedisStore) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, s.key(userID), start, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read history from redis")
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, errors.Wrapf(err, "corrupt history entry for %s", userID)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
