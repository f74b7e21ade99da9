package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

// ValidateInput is the transport-neutral form of a validation request.
type ValidateInput struct {
	UserID   string
	Input    string
	Origin   string
	Category string
}

type Controller interface {
	// Evaluate decides whether key may make another request at now. A non-nil
	// error always comes with a blocked InternalError decision.
	Evaluate(ctx context.Context, key domain.ClientKey, now time.Time) (domain.Decision, error)
	// Validate checks the request shape, resolves the caller and evaluates it.
	Validate(ctx context.Context, in ValidateInput) (domain.Decision, error)
	Limits() domain.Limits
}

type ControllerOpts struct {
	TimeProvider func() time.Time
	Resolver     IdentityResolver
}

type controller struct {
	store        domain.RateStore
	limits       domain.Limits
	resolver     IdentityResolver
	locks        *keyLocker
	logger       *logrus.Logger
	timeProvider func() time.Time
}

func NewController(
	store domain.RateStore,
	limits domain.Limits,
	logger *logrus.Logger,
	opts *ControllerOpts,
) (Controller, error) {
	if store == nil {
		return nil, errors.New("rate store is required")
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}

	c := &controller{
		store:        store,
		limits:       limits,
		resolver:     NewIdentityResolver(),
		locks:        newKeyLocker(),
		logger:       logger,
		timeProvider: time.Now,
	}
	if opts != nil && opts.TimeProvider != nil {
		c.timeProvider = opts.TimeProvider
	}
	if opts != nil && opts.Resolver != nil {
		c.resolver = opts.Resolver
	}
	return c, nil
}

func (c *controller) Limits() domain.Limits {
	return c.limits
}

func (c *controller) Validate(ctx context.Context, in ValidateInput) (domain.Decision, error) {
	if strings.TrimSpace(in.Input) == "" {
		return c.record(domain.Block(domain.ReasonInvalidRequest, 0)), domain.ErrInvalidInput
	}
	key, err := c.resolver.Resolve(in.UserID, in.Origin)
	if err != nil {
		return c.record(domain.Block(domain.ReasonInvalidRequest, 0)), err
	}
	if in.Category != "" {
		c.logger.WithFields(logrus.Fields{
			"client_key": key.String(),
			"category":   in.Category,
		}).Debug("validation request category")
	}

	decision, err := c.Evaluate(ctx, key, c.timeProvider())
	if err != nil {
		return decision, err
	}
	if !decision.Blocked {
		decision = domain.Admit(in.Input)
	}
	return decision, nil
}

func (c *controller) Evaluate(ctx context.Context, key domain.ClientKey, now time.Time) (domain.Decision, error) {
	if key.IsZero() {
		return c.record(domain.Block(domain.ReasonInvalidRequest, 0)), domain.ErrInvalidIdentity
	}
	unlock := c.locks.Lock(key.String())
	defer unlock()

	state, _, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"client_key": key.String(),
		}).WithError(err).Error("failed to load rate state")
		return c.record(domain.Block(domain.ReasonInternalError, 0)),
			fmt.Errorf("%w: load %s: %w", domain.ErrStoreUnavailable, key, err)
	}

	removed := state.Compact(now, c.limits.SustainedWindow)

	var rejection *domain.Decision
	if recent := state.CountWithin(now, c.limits.BurstWindow); recent >= c.limits.BurstLimit {
		d := domain.Block(domain.ReasonBurstLimitExceeded, c.limits.BurstWindow)
		rejection = &d
	} else if state.Len() >= c.limits.SustainedLimit {
		d := domain.Block(domain.ReasonSustainedLimitExceeded, c.limits.SustainedWindow)
		rejection = &d
	}

	if rejection != nil {
		if removed > 0 {
			if err := c.store.Save(ctx, key, state); err != nil {
				c.logger.WithField("client_key", key.String()).
					WithError(err).Warn("failed to persist compacted rate state")
			}
		}
		c.logger.WithFields(logrus.Fields{
			"client_key":  key.String(),
			"reason":      rejection.Reason,
			"retry_after": rejection.RetryAfterSeconds(),
		}).Debug("request rejected by rate limit")
		return c.record(*rejection), nil
	}

	state.Record(now)
	if err := c.store.Save(ctx, key, state); err != nil {
		c.logger.WithField("client_key", key.String()).
			WithError(err).Error("failed to save rate state")
		return c.record(domain.Block(domain.ReasonInternalError, 0)),
			fmt.Errorf("%w: save %s: %w", domain.ErrStoreUnavailable, key, err)
	}

	return c.record(domain.Decision{
		Blocked:    false,
		Reason:     domain.ReasonAdmitted,
		Confidence: domain.ReasonAdmitted.Confidence(),
	}), nil
}

func (c *controller) record(d domain.Decision) domain.Decision {
	prometheus.AdmissionDecisions.WithLabelValues(string(d.Reason)).Inc()
	return d
}
