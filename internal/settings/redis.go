package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store holding one JSON document per user.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig carries the connection parameters for a RedisStore.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

func (s *RedisStore) key(user string) string {
	return s.keyPrefix + user
}

// Load implements Store.Load.
func (s *RedisStore) Load(ctx context.Context, user string) (Settings, bool, error) {
	data, err := s.client.Get(ctx, s.key(user)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("get settings from redis: %w", err)
	}

	var st Settings
	if err := json.Unmarshal(data, &st); err != nil {
		return Settings{}, false, fmt.Errorf("unmarshal settings: %w", err)
	}
	return st, true, nil
}

// Save implements Store.Save.
func (s *RedisStore) Save(ctx context.Context, user string, st Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.client.Set(ctx, s.key(user), data, 0).Err(); err != nil {
		return fmt.Errorf("set settings in redis: %w", err)
	}
	return nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
