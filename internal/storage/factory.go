package storage

import (
	"github.com/rs/zerolog/log"
)

// Backend kinds accepted by New.
const (
	KindFile   = "file"
	KindMemory = "memory"
	KindRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Kind     string
	FilePath string
	Redis    RedisOptions
}

// New builds the configured backend. An unreachable Redis falls back to the file store
// when a file path is available.
func New(opts Options) (Store, error) {
	switch opts.Kind {
	case "", KindFile:
		return NewFileStore(opts.FilePath)
	case KindMemory:
		return NewMemoryStore(), nil
	case KindRedis:
		store, err := NewRedisStore(opts.Redis)
		if err == nil {
			log.Debug().Str("addr", opts.Redis.Addr).Msg("using redis session store")
			return store, nil
		}
		if opts.FilePath == "" {
			return nil, err
		}
		log.Warn().Err(err).Str("path", opts.FilePath).Msg("redis unavailable, falling back to file session store")
		return NewFileStore(opts.FilePath)
	default:
		return nil, ErrUnknownKind.Msg("unknown storage backend: " + opts.Kind)
	}
}
