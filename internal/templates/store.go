package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"campaignmap/internal/config"
	"campaignmap/internal/storage"
)

// MetadataStore keeps the overrides under one key of the sqlite metadata table.
type MetadataStore struct {
	db  *storage.DB
	key string
}

func NewMetadataStore(db *storage.DB, key string) *MetadataStore {
	return &MetadataStore{db: db, key: key}
}

func (s *MetadataStore) Load(_ context.Context) ([]byte, error) {
	value, err := s.db.GetMetadata(s.key)
	if err != nil || value == nil {
		return nil, err
	}
	return []byte(*value), nil
}

func (s *MetadataStore) Persist(_ context.Context, data []byte) error {
	return s.db.SetMetadata(s.key, string(data))
}

// RedisStore shares the overrides between processes through a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *RedisStore) Persist(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// OpenStore picks the backend named by TEMPLATE_STORE. The returned close
// function releases the Redis client when one was created.
func OpenStore(ctx context.Context, cfg config.Config, db *storage.DB) (Store, func() error, error) {
	switch cfg.TemplateStore {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client, cfg.TemplateStoreKey), client.Close, nil
	default:
		return NewMetadataStore(db, cfg.TemplateStoreKey), func() error { return nil }, nil
	}
}
