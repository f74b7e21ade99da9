package ratestore

import (
	"context"
	"time"

	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/httpx"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

const DefaultOperationTimeout = 2 * time.Second

// guardedStore bounds every backend call with a timeout and a circuit
// breaker. Both failure modes surface as errors, which the controller turns
// into a denial. The timeout holds even for backends that never look at ctx:
// the caller stops waiting and a late result is discarded.
type guardedStore struct {
	next    admission.RateStore
	backend string
	timeout time.Duration
	breaker httpx.CircuitBreaker
	logger  *logrus.Logger
}

func NewGuardedStore(
	next admission.RateStore,
	backend string,
	timeout time.Duration,
	breaker httpx.CircuitBreaker,
	logger *logrus.Logger,
) admission.RateStore {
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &guardedStore{
		next:    next,
		backend: backend,
		timeout: timeout,
		breaker: breaker,
		logger:  logger,
	}
}

func (s *guardedStore) Load(ctx context.Context, key admission.ClientKey) (admission.RateWindowState, bool, error) {
	var (
		state admission.RateWindowState
		ok    bool
	)
	err := s.run(ctx, "load", func(ctx context.Context) error {
		var err error
		state, ok, err = s.next.Load(ctx, key)
		return err
	})
	if err != nil {
		return admission.RateWindowState{}, false, err
	}
	return state, ok, nil
}

func (s *guardedStore) Save(ctx context.Context, key admission.ClientKey, state admission.RateWindowState) error {
	return s.run(ctx, "save", func(ctx context.Context) error {
		return s.next.Save(ctx, key, state)
	})
}

func (s *guardedStore) Close() error {
	return s.next.Close()
}

func (s *guardedStore) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	call := func() error { return waitFor(ctx, fn) }

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(call)
	} else {
		err = call()
	}

	if prometheus.Config.EnableStore {
		prometheus.RateStoreLatency.WithLabelValues(s.backend, operation).
			Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		prometheus.RateStoreErrors.WithLabelValues(s.backend, operation).Inc()
		fields := logrus.Fields{
			"backend":   s.backend,
			"operation": operation,
		}
		if s.breaker != nil {
			fields["breaker"] = s.breaker.Name()
			fields["breaker_state"] = s.breaker.State()
		}
		s.logger.WithFields(fields).WithError(err).Warn("rate store call failed")
	}
	return err
}

// waitFor runs fn in its own goroutine and returns ctx.Err() once ctx is done,
// whether or not fn has returned.
func waitFor(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
