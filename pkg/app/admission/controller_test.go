package admission_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	app "github.com/NeuralTrust/TrustGuard/pkg/app/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission/mocks"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/ratestore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1740730536, 0)

func at(seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second)))
}

func newController(t *testing.T, store admission.RateStore) app.Controller {
	t.Helper()
	c, err := app.NewController(store, admission.DefaultLimits(), logrus.New(), nil)
	require.NoError(t, err)
	return c
}

func storedCount(t *testing.T, store admission.RateStore, key admission.ClientKey) int {
	t.Helper()
	state, _, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	return state.Len()
}

func TestNewController_Validation(t *testing.T) {
	_, err := app.NewController(nil, admission.DefaultLimits(), logrus.New(), nil)
	assert.Error(t, err)

	limits := admission.DefaultLimits()
	limits.BurstLimit = 0
	_, err = app.NewController(ratestore.NewMemoryStore(), limits, logrus.New(), nil)
	assert.ErrorIs(t, err, admission.ErrInvalidLimits)
}

func TestEvaluate_BurstScenario(t *testing.T) {
	store := ratestore.NewMemoryStore()
	c := newController(t, store)
	key := admission.NewClientKey("u1", "10.0.0.1")
	ctx := context.Background()

	for _, ts := range []float64{0, 1, 2, 3, 4} {
		d, err := c.Evaluate(ctx, key, at(ts))
		require.NoError(t, err)
		assert.False(t, d.Blocked, "request at t=%v should be admitted", ts)
		assert.Equal(t, admission.ReasonAdmitted, d.Reason)
	}

	d, err := c.Evaluate(ctx, key, at(4.5))
	require.NoError(t, err)
	assert.True(t, d.Blocked)
	assert.Equal(t, admission.ReasonBurstLimitExceeded, d.Reason)
	assert.Equal(t, 5, d.RetryAfterSeconds())
	assert.Equal(t, 5, storedCount(t, store, key), "burst rejection must not be recorded")

	d, err = c.Evaluate(ctx, key, at(10))
	require.NoError(t, err)
	assert.False(t, d.Blocked)
	assert.Equal(t, 6, storedCount(t, store, key))
}

func TestEvaluate_SustainedLimit(t *testing.T) {
	store := ratestore.NewMemoryStore()
	c := newController(t, store)
	key := admission.NewClientKey("u1", "10.0.0.1")
	ctx := context.Background()

	// 29 requests spaced 2s apart never trip the burst window (at most 3 per 5s).
	for i := 0; i < 29; i++ {
		d, err := c.Evaluate(ctx, key, at(float64(i)*2))
		require.NoError(t, err)
		require.False(t, d.Blocked, "request %d should be admitted", i+1)
	}

	d, err := c.Evaluate(ctx, key, at(58))
	require.NoError(t, err)
	assert.True(t, d.Blocked)
	assert.Equal(t, admission.ReasonSustainedLimitExceeded, d.Reason)
	assert.Equal(t, 60, d.RetryAfterSeconds())
	assert.Equal(t, 29, storedCount(t, store, key))
}

func TestEvaluate_RecoversOnceOldestEntryLeavesWindow(t *testing.T) {
	store := ratestore.NewMemoryStore()
	c := newController(t, store)
	key := admission.NewClientKey("u1", "10.0.0.1")
	ctx := context.Background()

	for i := 0; i < 29; i++ {
		_, err := c.Evaluate(ctx, key, at(float64(i)*2))
		require.NoError(t, err)
	}

	d, err := c.Evaluate(ctx, key, at(59.9))
	require.NoError(t, err)
	assert.Equal(t, admission.ReasonSustainedLimitExceeded, d.Reason)

	// the entry recorded at t=0 falls out of the 60s window at t=60
	d, err = c.Evaluate(ctx, key, at(60))
	require.NoError(t, err)
	assert.False(t, d.Blocked)
}

func TestEvaluate_CompactsOnRejection(t *testing.T) {
	store := ratestore.NewMemoryStore()
	c := newController(t, store)
	key := admission.NewClientKey("u1", "10.0.0.1")
	ctx := context.Background()

	stale := []time.Time{at(-120), at(-90)}
	fresh := []time.Time{at(0), at(1), at(2), at(3), at(4)}
	require.NoError(t, store.Save(ctx, key, admission.NewRateWindowState(append(stale, fresh...)...)))

	d, err := c.Evaluate(ctx, key, at(4.5))
	require.NoError(t, err)
	assert.Equal(t, admission.ReasonBurstLimitExceeded, d.Reason)

	state, _, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 5, state.Len())
	for _, ts := range state.Timestamps {
		assert.Less(t, at(4.5).Sub(ts), time.Minute)
	}
}

func TestEvaluate_KeysAreIsolated(t *testing.T) {
	store := ratestore.NewMemoryStore()
	c := newController(t, store)
	ctx := context.Background()
	k1 := admission.NewClientKey("u1", "10.0.0.1")
	k2 := admission.NewClientKey("u2", "10.0.0.1")

	_, err := c.Evaluate(ctx, k2, at(0))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := c.Evaluate(ctx, k1, at(float64(i)))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, storedCount(t, store, k2))
	d, err := c.Evaluate(ctx, k2, at(4))
	require.NoError(t, err)
	assert.False(t, d.Blocked)
}

func TestEvaluate_CustomLimits(t *testing.T) {
	limits := admission.Limits{
		BurstLimit:      2,
		BurstWindow:     time.Second,
		SustainedLimit:  3,
		SustainedWindow: 10 * time.Second,
	}
	c, err := app.NewController(ratestore.NewMemoryStore(), limits, logrus.New(), nil)
	require.NoError(t, err)
	key := admission.NewClientKey("u1", "10.0.0.1")
	ctx := context.Background()

	d, _ := c.Evaluate(ctx, key, at(0))
	assert.False(t, d.Blocked)
	d, _ = c.Evaluate(ctx, key, at(0.1))
	assert.False(t, d.Blocked)
	d, _ = c.Evaluate(ctx, key, at(0.2))
	assert.Equal(t, admission.ReasonBurstLimitExceeded, d.Reason)
	assert.Equal(t, 1, d.RetryAfterSeconds())
	d, _ = c.Evaluate(ctx, key, at(2))
	assert.False(t, d.Blocked)
	d, _ = c.Evaluate(ctx, key, at(4))
	assert.Equal(t, admission.ReasonSustainedLimitExceeded, d.Reason)
	assert.Equal(t, 10, d.RetryAfterSeconds())
}

func TestEvaluate_RejectsZeroKey(t *testing.T) {
	store := new(mocks.RateStore)
	c := newController(t, store)

	d, err := c.Evaluate(context.Background(), admission.ClientKey{}, at(0))

	assert.ErrorIs(t, err, admission.ErrInvalidIdentity)
	assert.True(t, d.Blocked)
	assert.Equal(t, admission.ReasonInvalidRequest, d.Reason)
	store.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestEvaluate_FailsClosedOnLoadError(t *testing.T) {
	store := new(mocks.RateStore)
	key := admission.NewClientKey("u1", "10.0.0.1")
	store.On("Load", mock.Anything, key).Return(nil, false, errors.New("redis down"))

	c := newController(t, store)
	d, err := c.Evaluate(context.Background(), key, at(0))

	assert.ErrorIs(t, err, admission.ErrStoreUnavailable)
	assert.True(t, d.Blocked)
	assert.Equal(t, admission.ReasonInternalError, d.Reason)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_FailsClosedOnSaveError(t *testing.T) {
	store := new(mocks.RateStore)
	key := admission.NewClientKey("u1", "10.0.0.1")
	store.On("Load", mock.Anything, key).Return(admission.RateWindowState{}, false, nil)
	store.On("Save", mock.Anything, key, mock.Anything).Return(errors.New("disk full"))

	c := newController(t, store)
	d, err := c.Evaluate(context.Background(), key, at(0))

	assert.ErrorIs(t, err, admission.ErrStoreUnavailable)
	assert.True(t, d.Blocked)
	assert.Equal(t, admission.ReasonInternalError, d.Reason)
}

func TestEvaluate_ConcurrentSameKeyNeverOverAdmits(t *testing.T) {
	store := ratestore.NewMemoryStore()
	c := newController(t, store)
	key := admission.NewClientKey("u1", "10.0.0.1")
	now := at(0)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := c.Evaluate(context.Background(), key, now)
			if err == nil && !d.Blocked {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, admission.DefaultBurstLimit, admitted)
	assert.Equal(t, admission.DefaultBurstLimit, storedCount(t, store, key))
}

func TestValidate(t *testing.T) {
	store := ratestore.NewMemoryStore()
	c, err := app.NewController(store, admission.DefaultLimits(), logrus.New(), &app.ControllerOpts{
		TimeProvider: func() time.Time { return epoch },
	})
	require.NoError(t, err)
	ctx := context.Background()

	d, err := c.Validate(ctx, app.ValidateInput{UserID: "u1", Input: "hello", Origin: "10.0.0.1"})
	require.NoError(t, err)
	assert.False(t, d.Blocked)
	require.NotNil(t, d.SanitizedOutput)
	assert.Equal(t, "hello", *d.SanitizedOutput)
	assert.Equal(t, 0.95, d.Confidence)
}

func TestValidate_InvalidRequestNeverTouchesState(t *testing.T) {
	store := new(mocks.RateStore)
	c := newController(t, store)
	ctx := context.Background()

	inputs := []app.ValidateInput{
		{UserID: "", Input: "hello", Origin: "10.0.0.1"},
		{UserID: "   ", Input: "hello", Origin: "10.0.0.1"},
		{UserID: "u1", Input: "", Origin: "10.0.0.1"},
	}
	for i := 0; i < 3; i++ {
		for _, in := range inputs {
			d, err := c.Validate(ctx, in)
			assert.Error(t, err)
			assert.True(t, d.Blocked)
			assert.Equal(t, admission.ReasonInvalidRequest, d.Reason)
		}
	}

	store.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}
