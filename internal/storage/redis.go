package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "proxy:"

// RedisStorage keeps each record as a JSON value under proxy:<id>.
// Creation uses SET NX so concurrent registrations of one id store it once.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects to the redis server described by rawURL
// (redis:// or rediss://) and checks it answers.
func NewRedisStorage(ctx context.Context, rawURL string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStorage{client: client}, nil
}

func (s *RedisStorage) GetOrCreate(ctx context.Context, r ProxyRecord) (ProxyRecord, bool, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return ProxyRecord{}, false, err
	}

	created, err := s.client.SetNX(ctx, redisKeyPrefix+r.ID, data, 0).Result()
	if err != nil {
		return ProxyRecord{}, false, fmt.Errorf("setnx %s: %w", r.ID, err)
	}

	if created {
		return r, true, nil
	}

	existing, err := s.FindByID(ctx, r.ID)
	if err != nil {
		return ProxyRecord{}, false, err
	}

	return existing, false, nil
}

func (s *RedisStorage) FindByID(ctx context.Context, id string) (ProxyRecord, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return ProxyRecord{}, ErrNotFound
	}
	if err != nil {
		return ProxyRecord{}, fmt.Errorf("get %s: %w", id, err)
	}

	var r ProxyRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return ProxyRecord{}, fmt.Errorf("decode %s: %w", id, err)
	}

	return r, nil
}

func (s *RedisStorage) PingContext(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
