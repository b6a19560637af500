package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tdnguyen/plantdoc/backend/internal/model/chat"
)

const redisKeyPrefix = "plantdoc:session:"

// RedisStore shares the session record across instances. Records carry
// no TTL; a session only ever goes away through an explicit clear.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings before handing the store back.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) key(key string) string {
	return redisKeyPrefix + key
}

// Load fetches and decodes the record under key. redis.Nil and decode
// failures both read as ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, key string) (chat.Session, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return chat.Session{}, ErrNotFound
		}
		return chat.Session{}, fmt.Errorf("load session from redis: %w", err)
	}
	return decodeSession(data)
}

// Save writes the full session under key.
func (s *RedisStore) Save(ctx context.Context, key string, session chat.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("save session to redis: %w", err)
	}
	return nil
}

// Clear deletes the record under key.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("clear session in redis: %w", err)
	}
	return nil
}
