package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"recycle-watch/internal/tracker"
)

// RedisOptions configure the Redis backend.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	Key         string
	DialTimeout time.Duration
}

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps the flags as the same JSON document under a single key.
type RedisStore struct {
	client redisKV
	closer func() error
	key    string
	logger zerolog.Logger
}

// NewRedisStore dials nothing up front; go-redis connects lazily.
func NewRedisStore(opts RedisOptions, logger zerolog.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})
	s := newRedisStore(client, opts.Key, logger)
	s.closer = client.Close
	return s
}

func newRedisStore(client redisKV, key string, logger zerolog.Logger) *RedisStore {
	if key == "" {
		key = "recyclewatch:state"
	}
	return &RedisStore{
		client: client,
		key:    key,
		logger: logger.With().Str("component", "state_redis").Logger(),
	}
}

// Load reads the flags; an absent key yields clean flags.
func (s *RedisStore) Load(ctx context.Context) (tracker.State, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.logger.Info().Str("key", s.key).Msg("state key absent; starting from clean flags")
			return tracker.State{}, nil
		}
		return tracker.State{}, fmt.Errorf("%w: redis get %s: %v", ErrStateIO, s.key, err)
	}

	st, err := decode(raw)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("state value malformed; resetting flags")
		return tracker.State{}, nil
	}
	return st, nil
}

// Save overwrites the key without expiry.
func (s *RedisStore) Save(ctx context.Context, st tracker.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, string(data), 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", ErrStateIO, s.key, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

var _ Store = (*RedisStore)(nil)
