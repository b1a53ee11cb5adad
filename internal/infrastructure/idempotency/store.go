// Package idempotency records payment responses keyed by a client-supplied
// Idempotency-Key so retried requests replay the original outcome instead of
// debiting the loan twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-management/internal/config"
	"loan-management/internal/pkg/apperrors"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "loan-management:idempotency:payment:"

type Store interface {
	// Get returns the recorded response for key, or apperrors.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put records the response for key. A key that is already recorded is
	// left untouched.
	Put(ctx context.Context, key string, response []byte) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(cfg config.RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := cfg.KeyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "IdempotencyStore"),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to read idempotency key", "error", err)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInternalServer, err)
	}
	return val, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, response []byte) error {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, response, s.ttl).Result()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record idempotency key", "error", err)
		return fmt.Errorf("%w: %w", apperrors.ErrInternalServer, err)
	}
	if !ok {
		s.logger.WarnContext(ctx, "Idempotency key already recorded", "key", key)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
