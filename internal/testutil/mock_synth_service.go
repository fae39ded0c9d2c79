package testutil

import (
	"context"

	"github.com/haatos/mybucketapp/internal/stack"
	"github.com/haatos/mybucketapp/internal/store"
	"github.com/haatos/mybucketapp/internal/template"
	"github.com/stretchr/testify/mock"
)

type MockSynthService struct {
	mock.Mock
}

func (m *MockSynthService) ListEnvironments() []stack.EnvironmentConfig {
	args := m.Called()
	return args.Get(0).([]stack.EnvironmentConfig)
}

func (m *MockSynthService) DescriptorSet(envName string) (*stack.DescriptorSet, error) {
	args := m.Called(envName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stack.DescriptorSet), args.Error(1)
}

func (m *MockSynthService) Template(envName, stackName string) (*template.Template, error) {
	args := m.Called(envName, stackName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*template.Template), args.Error(1)
}

func (m *MockSynthService) Synthesize(
	ctx context.Context,
	envName string,
	stacks ...string,
) ([]*store.Synth, error) {
	args := m.Called(ctx, envName, stacks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Synth), args.Error(1)
}

func (m *MockSynthService) ListSynths(ctx context.Context, envName string) ([]*store.Synth, error) {
	args := m.Called(ctx, envName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Synth), args.Error(1)
}

func (m *MockSynthService) GetSynth(ctx context.Context, envName string, id int64) (*store.Synth, error) {
	args := m.Called(ctx, envName, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Synth), args.Error(1)
}

func (m *MockSynthService) DeleteSynth(ctx context.Context, envName string, id int64) error {
	args := m.Called(ctx, envName, id)
	return args.Error(0)
}
