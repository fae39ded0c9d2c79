package testutil

import (
	"context"

	"github.com/haatos/mybucketapp/internal/service"
	"github.com/haatos/mybucketapp/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockDeployService struct {
	mock.Mock
}

func (m *MockDeployService) Diff(
	ctx context.Context,
	envName string,
	stacks ...string,
) ([]service.StackDiff, error) {
	args := m.Called(ctx, envName, stacks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.StackDiff), args.Error(1)
}

func (m *MockDeployService) DiffLocal(
	ctx context.Context,
	envName string,
	stacks ...string,
) ([]service.StackDiff, error) {
	args := m.Called(ctx, envName, stacks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.StackDiff), args.Error(1)
}

func (m *MockDeployService) Deploy(
	ctx context.Context,
	envName string,
	stacks ...string,
) ([]*store.Deployment, error) {
	args := m.Called(ctx, envName, stacks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Deployment), args.Error(1)
}

func (m *MockDeployService) ListDeployments(
	ctx context.Context,
	envName string,
	limit int64,
) ([]*store.Deployment, error) {
	args := m.Called(ctx, envName, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Deployment), args.Error(1)
}
