package ratestore

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/cache"
)

// memoryStore keeps rate state in process memory. State is lost on restart,
// which suits single instance deployments.
type memoryStore struct {
	states *cache.TTLMap[admission.RateWindowState]
	stop   chan struct{}
	once   sync.Once
}

func NewMemoryStore() admission.RateStore {
	return NewExpiringMemoryStore(0, nil)
}

// NewExpiringMemoryStore drops a key once ttl has passed since its last save.
// With ttl set to the sustained window an evicted key could only have held
// timestamps that compaction would discard anyway.
func NewExpiringMemoryStore(ttl time.Duration, timeProvider func() time.Time) admission.RateStore {
	s := &memoryStore{
		states: cache.NewTTLMap[admission.RateWindowState](ttl, timeProvider),
		stop:   make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep(ttl)
	}
	return s
}

func (s *memoryStore) Load(ctx context.Context, key admission.ClientKey) (admission.RateWindowState, bool, error) {
	if err := ctx.Err(); err != nil {
		return admission.RateWindowState{}, false, err
	}
	state, ok := s.states.Get(key.String())
	if !ok {
		return admission.RateWindowState{}, false, nil
	}
	return state.Clone(), true, nil
}

func (s *memoryStore) Save(ctx context.Context, key admission.ClientKey, state admission.RateWindowState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.Len() == 0 {
		s.states.Delete(key.String())
		return nil
	}
	s.states.Set(key.String(), state.Clone())
	return nil
}

func (s *memoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *memoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.states.Sweep()
		case <-s.stop:
			return
		}
	}
}
