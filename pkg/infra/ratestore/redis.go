package ratestore

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const KeyPattern = "ratelimit:%s"

type RedisOpts struct {
	// TTL bounds how long an idle key survives in redis. It should be at
	// least the sustained window.
	TTL          time.Duration
	UuidProvider func() uuid.UUID
}

// redisStore keeps one sorted set per client key, scored by request time.
// Saves rewrite a single key inside MULTI/EXEC, never the whole keyspace.
type redisStore struct {
	client       *redis.Client
	ttl          time.Duration
	uuidProvider func() uuid.UUID
}

func NewRedisStore(client *redis.Client, opts *RedisOpts) admission.RateStore {
	s := &redisStore{
		client:       client,
		ttl:          admission.DefaultSustainedWindow,
		uuidProvider: uuid.New,
	}
	if opts != nil && opts.TTL > 0 {
		s.ttl = opts.TTL
	}
	if opts != nil && opts.UuidProvider != nil {
		s.uuidProvider = opts.UuidProvider
	}
	return s
}

func RedisKey(key admission.ClientKey) string {
	return fmt.Sprintf(KeyPattern, key.String())
}

// Score converts a request time into the sorted-set score.
func Score(ts time.Time) float64 {
	return float64(ts.UnixNano()) / float64(time.Second)
}

func (s *redisStore) Load(ctx context.Context, key admission.ClientKey) (admission.RateWindowState, bool, error) {
	entries, err := s.client.ZRangeWithScores(ctx, RedisKey(key), 0, -1).Result()
	if err != nil {
		return admission.RateWindowState{}, false, fmt.Errorf("failed to read rate state: %w", err)
	}
	if len(entries) == 0 {
		return admission.RateWindowState{}, false, nil
	}
	values := make([]float64, len(entries))
	for i, entry := range entries {
		values[i] = entry.Score
	}
	return admission.RateWindowStateFromUnixSeconds(values), true, nil
}

func (s *redisStore) Save(ctx context.Context, key admission.ClientKey, state admission.RateWindowState) error {
	redisKey := RedisKey(key)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisKey)
	if state.Len() > 0 {
		members := make([]*redis.Z, 0, state.Len())
		for _, ts := range state.Timestamps {
			members = append(members, &redis.Z{
				Score:  Score(ts),
				Member: fmt.Sprintf("%d:%s", ts.UnixNano(), s.uuidProvider().String()),
			})
		}
		pipe.ZAdd(ctx, redisKey, members...)
		pipe.Expire(ctx, redisKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute rate state pipeline: %w", err)
	}
	return nil
}

// Close is a no-op; the redis client is owned by the caller.
func (s *redisStore) Close() error {
	return nil
}
