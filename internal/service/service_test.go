package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/haatos/mybucketapp/internal"
	"github.com/haatos/mybucketapp/internal/provisioner"
	"github.com/haatos/mybucketapp/internal/stack"
	"github.com/haatos/mybucketapp/internal/store"
	"github.com/haatos/mybucketapp/internal/template"
	"github.com/stretchr/testify/mock"
)

type MockSynthStore struct {
	mock.Mock
}

func (m *MockSynthStore) CreateSynth(
	ctx context.Context,
	environment,
	stackName,
	account,
	region,
	hash,
	body string,
) (*store.Synth, error) {
	args := m.Called(ctx, environment, stackName, account, region, hash, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Synth), args.Error(1)
}

func (m *MockSynthStore) ReadSynthByID(ctx context.Context, id int64) (*store.Synth, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Synth), args.Error(1)
}

func (m *MockSynthStore) ReadLatestSynth(
	ctx context.Context,
	environment,
	stackName string,
) (*store.Synth, error) {
	args := m.Called(ctx, environment, stackName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Synth), args.Error(1)
}

func (m *MockSynthStore) ListSynths(ctx context.Context, environment string) ([]*store.Synth, error) {
	args := m.Called(ctx, environment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Synth), args.Error(1)
}

func (m *MockSynthStore) DeleteSynth(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockDeploymentStore struct {
	mock.Mock
}

func (m *MockDeploymentStore) CreateDeployment(
	ctx context.Context,
	synthID int64,
	environment,
	stackName string,
	status store.DeploymentStatus,
	message *string,
) (*store.Deployment, error) {
	args := m.Called(ctx, synthID, environment, stackName, status, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Deployment), args.Error(1)
}

func (m *MockDeploymentStore) ListDeployments(
	ctx context.Context,
	environment string,
	limit int64,
) ([]*store.Deployment, error) {
	args := m.Called(ctx, environment, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Deployment), args.Error(1)
}

type MockClientFactory struct {
	mock.Mock
}

func (m *MockClientFactory) Engine(ctx context.Context, env stack.Environment) (provisioner.Engine, error) {
	args := m.Called(ctx, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provisioner.Engine), args.Error(1)
}

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) GetTemplate(ctx context.Context, stackName string) (*template.Template, bool, error) {
	args := m.Called(ctx, stackName)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*template.Template), args.Bool(1), args.Error(2)
}

func (m *MockEngine) DeployStack(
	ctx context.Context,
	stackName string,
	body []byte,
) (*provisioner.DeployResult, error) {
	args := m.Called(ctx, stackName, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioner.DeployResult), args.Error(1)
}

type MockDiffer struct {
	mock.Mock
}

func (m *MockDiffer) Diff(ctx context.Context, envName string, stacks ...string) ([]StackDiff, error) {
	args := m.Called(ctx, envName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]StackDiff), args.Error(1)
}

var testEnvironment = stack.Environment{
	Name:    "sandbox",
	Account: "111111111111",
	Region:  "eu-west-1",
}

func generateConfiguration() *internal.Configuration {
	return &internal.Configuration{
		App: stack.App{
			Name: "mybucketapp",
			Source: stack.RepositoryRef{
				Owner:         "example",
				Repo:          "mybucketapp",
				Branch:        "main",
				ConnectionARN: "arn:aws:codestar-connections:eu-west-1:111111111111:connection/abc",
			},
		},
		Environments: []stack.EnvironmentConfig{
			{
				Environment: testEnvironment,
				Buckets: []stack.BucketSpec{
					{Name: "mybucketapp-bucket-1", RemovalPolicy: stack.RemovalDestroy},
					{Name: "mybucketapp-bucket-2", RemovalPolicy: stack.RemovalRetain},
				},
			},
		},
	}
}

func generateSynth(id int64, stackName, body string) *store.Synth {
	return &store.Synth{
		SynthID:      id,
		Environment:  testEnvironment.Name,
		StackName:    stackName,
		Account:      testEnvironment.Account,
		Region:       testEnvironment.Region,
		TemplateHash: "hash",
		Template:     body,
		CreatedOn:    time.Now().UTC(),
	}
}

var errNoRows = sql.ErrNoRows
