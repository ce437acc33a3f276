package storage

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string        // prepended to every key, defaults to "assigno:"
	Timeout   time.Duration // per-operation timeout, defaults to 2s
}

// RedisStore keeps values in Redis so several clients on one machine share a session.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore connects to Redis, retrying the initial ping a few times with backoff.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "assigno:"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	err := retry.Do(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Str("addr", opts.Addr).Uint("attempt", n+1).Err(err).Msg("redis ping failed, retrying")
		}),
	)
	if err != nil {
		client.Close()
		return nil, ErrStorage.MsgErr("unable to connect to redis", err)
	}

	return &RedisStore{client: client, prefix: opts.KeyPrefix, timeout: opts.Timeout}, nil
}

func (r *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, ErrStorage.Err(err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return ErrStorage.Err(err)
	}
	return nil
}

func (r *RedisStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.prefix + k
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return ErrStorage.Err(err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
