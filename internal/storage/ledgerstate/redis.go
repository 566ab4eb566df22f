package ledgerstate

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vadiminshakov/kxmarket/internal/domain"
	"github.com/vadiminshakov/kxmarket/pkg/retrier"
)

// RedisConfig connection settings for the redis slot.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps the ledger state under a single redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore connects to redis, retrying the initial ping with backoff.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.Logger, r *retrier.Retrier) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = retrier.New(
			retrier.WithMaxRetries(3),
			retrier.WithInitialInterval(200*time.Millisecond),
			retrier.WithOnRetry(func(attempt int, err error, wait time.Duration) {
				logger.Warn("redis ping failed, retrying",
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err))
			}),
		)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := r.Do(ctx, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", cfg.Addr)
	}

	logger.Info("redis ledger store connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))

	return &RedisStore{client: client, key: Key, logger: logger}, nil
}

// Load reads the state. Returns nil state when the key is absent.
func (s *RedisStore) Load(ctx context.Context) (*domain.LedgerState, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "redis get ledger state")
	}

	return Decode(payload)
}

// Save overwrites the state.
func (s *RedisStore) Save(ctx context.Context, state domain.LedgerState) error {
	payload, err := Encode(state)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return errors.Wrap(err, "redis set ledger state")
	}

	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
