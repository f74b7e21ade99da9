package ratestore

import (
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/httpx"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	MemoryBackend = "memory"
	FileBackend   = "file"
	RedisBackend  = "redis"
)

type Options struct {
	Backend            string
	FilePath           string
	OperationTimeout   time.Duration
	BreakerTimeout     time.Duration
	BreakerMaxFailures uint32
	TTL                time.Duration
}

type StoreLocator struct {
	logger      *logrus.Logger
	redisClient func() (*redis.Client, error)
}

// NewStoreLocator builds stores by backend name. The redis client is created
// lazily so deployments that never select redis do not need one.
func NewStoreLocator(logger *logrus.Logger, redisClient func() (*redis.Client, error)) *StoreLocator {
	return &StoreLocator{
		logger:      logger,
		redisClient: redisClient,
	}
}

func (l *StoreLocator) GetStore(opts Options) (admission.RateStore, error) {
	var (
		store admission.RateStore
		err   error
	)
	switch opts.Backend {
	case MemoryBackend, "":
		store = NewExpiringMemoryStore(opts.TTL, nil)
	case FileBackend:
		store, err = NewFileStore(opts.FilePath, l.logger)
	case RedisBackend:
		if l.redisClient == nil {
			return nil, fmt.Errorf("redis backend selected but no redis client configured")
		}
		var client *redis.Client
		client, err = l.redisClient()
		if err == nil {
			store = NewRedisStore(client, &RedisOpts{TTL: opts.TTL})
		}
	default:
		return nil, fmt.Errorf("unsupported rate store backend: %s", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s rate store: %w", opts.Backend, err)
	}

	backend := opts.Backend
	if backend == "" {
		backend = MemoryBackend
	}
	breaker := httpx.NewCircuitBreaker("rate-store-"+backend, opts.BreakerTimeout, opts.BreakerMaxFailures)

	l.logger.WithFields(logrus.Fields{
		"backend": backend,
		"timeout": opts.OperationTimeout.String(),
	}).Info("rate store initialized")

	return NewGuardedStore(store, backend, opts.OperationTimeout, breaker, l.logger), nil
}
