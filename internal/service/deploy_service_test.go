package service

import (
	"context"
	"errors"
	"testing"

	"github.com/haatos/mybucketapp/internal/provisioner"
	"github.com/haatos/mybucketapp/internal/stack"
	"github.com/haatos/mybucketapp/internal/store"
	"github.com/haatos/mybucketapp/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDeployService(
	t *testing.T,
	ss *MockSynthStore,
	clients *MockClientFactory,
	ds *MockDeploymentStore,
) *DeployService {
	synthService := NewSynthService(generateConfiguration(), ss, t.TempDir())
	return NewDeployService(synthService, clients, ds)
}

func TestDeployService_Diff(t *testing.T) {
	t.Run("success - missing stacks are all additions", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		engine := new(MockEngine)
		engine.On("GetTemplate", ctx, mock.Anything).Return(nil, false, nil)
		clients := new(MockClientFactory)
		clients.On("Engine", ctx, testEnvironment).Return(engine, nil)
		s := newTestDeployService(t, new(MockSynthStore), clients, new(MockDeploymentStore))

		// act
		diffs, err := s.Diff(ctx, "sandbox")

		// assert
		require.NoError(t, err)
		require.Len(t, diffs, 2)
		assert.Equal(t, stack.DefaultBucketStack, diffs[0].Stack)
		assert.False(t, diffs[0].Exists)
		assert.Len(t, diffs[0].Changes, 2)
		for _, c := range diffs[0].Changes {
			assert.Equal(t, template.ChangeAdd, c.Action)
		}
	})
	t.Run("success - live bucket stack in sync", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		synthService := NewSynthService(generateConfiguration(), new(MockSynthStore), t.TempDir())
		live, err := synthService.Template("sandbox", stack.DefaultBucketStack)
		require.NoError(t, err)

		engine := new(MockEngine)
		engine.On("GetTemplate", ctx, stack.DefaultBucketStack).Return(live, true, nil)
		clients := new(MockClientFactory)
		clients.On("Engine", ctx, testEnvironment).Return(engine, nil)
		s := NewDeployService(synthService, clients, new(MockDeploymentStore))

		// act
		diffs, err := s.Diff(ctx, "sandbox", stack.DefaultBucketStack)

		// assert
		require.NoError(t, err)
		require.Len(t, diffs, 1)
		assert.True(t, diffs[0].Exists)
		assert.Empty(t, diffs[0].Changes)
	})
	t.Run("failure - credentials rejected", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		clients := new(MockClientFactory)
		mismatch := &provisioner.AccountMismatchError{Expected: "111111111111", Actual: "222222222222"}
		clients.On("Engine", ctx, testEnvironment).Return(nil, mismatch)
		s := newTestDeployService(t, new(MockSynthStore), clients, new(MockDeploymentStore))

		// act
		_, err := s.Diff(ctx, "sandbox")

		// assert
		assert.ErrorIs(t, err, mismatch)
	})
}

func TestDeployService_DiffLocal(t *testing.T) {
	t.Run("success - no previous synth", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		ss := new(MockSynthStore)
		ss.On("ReadLatestSynth", ctx, "sandbox", stack.DefaultBucketStack).Return(nil, errNoRows)
		s := newTestDeployService(t, ss, new(MockClientFactory), new(MockDeploymentStore))

		// act
		diffs, err := s.DiffLocal(ctx, "sandbox", stack.DefaultBucketStack)

		// assert
		require.NoError(t, err)
		require.Len(t, diffs, 1)
		assert.False(t, diffs[0].Exists)
		assert.Len(t, diffs[0].Changes, 2)
	})
	t.Run("success - removed bucket is reported", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		previous := template.New("previous")
		require.NoError(t, previous.Add(stack.BucketLogicalID("old-bucket"), stack.BucketSpec{
			Name: "old-bucket",
		}.Resource()))
		body, err := previous.Bytes()
		require.NoError(t, err)

		ss := new(MockSynthStore)
		ss.On("ReadLatestSynth", ctx, "sandbox", stack.DefaultBucketStack).
			Return(generateSynth(3, stack.DefaultBucketStack, string(body)), nil)
		s := newTestDeployService(t, ss, new(MockClientFactory), new(MockDeploymentStore))

		// act
		diffs, err := s.DiffLocal(ctx, "sandbox", stack.DefaultBucketStack)

		// assert
		require.NoError(t, err)
		require.Len(t, diffs[0].Changes, 3)
		actions := map[template.ChangeAction]int{}
		for _, c := range diffs[0].Changes {
			actions[c.Action]++
		}
		assert.Equal(t, 2, actions[template.ChangeAdd])
		assert.Equal(t, 1, actions[template.ChangeRemove])
	})
}

func TestDeployService_Deploy(t *testing.T) {
	t.Run("success - stacks deployed in order", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		ss := new(MockSynthStore)
		ss.On("ReadLatestSynth", ctx, "sandbox", mock.Anything).Return(nil, errNoRows)
		ss.On("CreateSynth", ctx, "sandbox", stack.DefaultBucketStack,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(generateSynth(1, stack.DefaultBucketStack, "buckets"), nil)
		ss.On("CreateSynth", ctx, "sandbox", stack.DefaultPipelineStack,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(generateSynth(2, stack.DefaultPipelineStack, "pipeline"), nil)

		engine := new(MockEngine)
		engine.On("DeployStack", ctx, stack.DefaultBucketStack, []byte("buckets")).
			Return(&provisioner.DeployResult{Result: provisioner.ResultUnchanged}, nil)
		engine.On("DeployStack", ctx, stack.DefaultPipelineStack, []byte("pipeline")).
			Return(&provisioner.DeployResult{Result: provisioner.ResultCreated, Status: "CREATE_COMPLETE"}, nil)
		clients := new(MockClientFactory)
		clients.On("Engine", ctx, testEnvironment).Return(engine, nil)

		dstore := new(MockDeploymentStore)
		dstore.On("CreateDeployment", ctx, int64(1), "sandbox", stack.DefaultBucketStack,
			store.DeploymentUnchanged, (*string)(nil)).
			Return(&store.Deployment{DeploymentID: 1, Status: store.DeploymentUnchanged}, nil)
		dstore.On("CreateDeployment", ctx, int64(2), "sandbox", stack.DefaultPipelineStack,
			store.DeploymentDeployed, mock.Anything).
			Return(&store.Deployment{DeploymentID: 2, Status: store.DeploymentDeployed}, nil)
		s := newTestDeployService(t, ss, clients, dstore)

		// act
		deployments, err := s.Deploy(ctx, "sandbox")

		// assert
		require.NoError(t, err)
		require.Len(t, deployments, 2)
		assert.Equal(t, store.DeploymentUnchanged, deployments[0].Status)
		assert.Equal(t, store.DeploymentDeployed, deployments[1].Status)
		engine.AssertExpectations(t)
		dstore.AssertExpectations(t)
	})
	t.Run("failure - first failure stops the run", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		ss := new(MockSynthStore)
		ss.On("ReadLatestSynth", ctx, "sandbox", mock.Anything).Return(nil, errNoRows)
		ss.On("CreateSynth", ctx, "sandbox", stack.DefaultBucketStack,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(generateSynth(1, stack.DefaultBucketStack, "buckets"), nil)
		ss.On("CreateSynth", ctx, "sandbox", stack.DefaultPipelineStack,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(generateSynth(2, stack.DefaultPipelineStack, "pipeline"), nil)

		cause := &provisioner.ExternalEngineError{
			Stack: stack.DefaultBucketStack,
			Op:    "create",
			Err:   errors.New("bucket name already taken"),
		}
		engine := new(MockEngine)
		engine.On("DeployStack", ctx, stack.DefaultBucketStack, []byte("buckets")).Return(nil, cause)
		clients := new(MockClientFactory)
		clients.On("Engine", ctx, testEnvironment).Return(engine, nil)

		dstore := new(MockDeploymentStore)
		dstore.On("CreateDeployment", ctx, int64(1), "sandbox", stack.DefaultBucketStack,
			store.DeploymentFailed, mock.Anything).
			Return(&store.Deployment{DeploymentID: 1, Status: store.DeploymentFailed}, nil)
		s := newTestDeployService(t, ss, clients, dstore)

		// act
		deployments, err := s.Deploy(ctx, "sandbox")

		// assert
		assert.ErrorIs(t, err, cause)
		require.Len(t, deployments, 1)
		assert.Equal(t, store.DeploymentFailed, deployments[0].Status)
		engine.AssertNotCalled(t, "DeployStack", ctx, stack.DefaultPipelineStack, mock.Anything)
	})
}

func TestDeployService_ListDeployments(t *testing.T) {
	t.Run("success - zero limit lists everything", func(t *testing.T) {
		ctx := context.Background()
		dstore := new(MockDeploymentStore)
		dstore.On("ListDeployments", ctx, "sandbox", int64(-1)).Return([]*store.Deployment{}, nil)
		s := newTestDeployService(t, new(MockSynthStore), new(MockClientFactory), dstore)

		deployments, err := s.ListDeployments(ctx, "sandbox", 0)

		assert.NoError(t, err)
		assert.Empty(t, deployments)
		dstore.AssertExpectations(t)
	})
}
