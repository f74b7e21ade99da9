package mocks

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/stretchr/testify/mock"
)

type RateStore struct {
	mock.Mock
}

func (m *RateStore) Load(ctx context.Context, key admission.ClientKey) (admission.RateWindowState, bool, error) {
	args := m.Called(ctx, key)
	state, ok := args.Get(0).(admission.RateWindowState)
	if !ok && args.Get(0) != nil {
		return admission.RateWindowState{}, false, fmt.Errorf("expected admission.RateWindowState, got %T", args.Get(0))
	}
	return state, args.Bool(1), args.Error(2)
}

func (m *RateStore) Save(ctx context.Context, key admission.ClientKey, state admission.RateWindowState) error {
	args := m.Called(ctx, key, state)
	return args.Error(0)
}

func (m *RateStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
