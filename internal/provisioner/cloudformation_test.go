package provisioner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCloudFormation struct {
	mock.Mock
}

func (m *MockCloudFormation) DescribeStacks(
	ctx context.Context,
	in *cloudformation.DescribeStacksInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.DescribeStacksOutput, error) {
	args := m.Called(ctx, aws.ToString(in.StackName))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudformation.DescribeStacksOutput), args.Error(1)
}

func (m *MockCloudFormation) GetTemplate(
	ctx context.Context,
	in *cloudformation.GetTemplateInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.GetTemplateOutput, error) {
	args := m.Called(ctx, aws.ToString(in.StackName))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudformation.GetTemplateOutput), args.Error(1)
}

func (m *MockCloudFormation) CreateStack(
	ctx context.Context,
	in *cloudformation.CreateStackInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.CreateStackOutput, error) {
	args := m.Called(ctx, aws.ToString(in.StackName), aws.ToString(in.TemplateBody))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudformation.CreateStackOutput), args.Error(1)
}

func (m *MockCloudFormation) UpdateStack(
	ctx context.Context,
	in *cloudformation.UpdateStackInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.UpdateStackOutput, error) {
	args := m.Called(ctx, aws.ToString(in.StackName), aws.ToString(in.TemplateBody))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudformation.UpdateStackOutput), args.Error(1)
}

type MockSTS struct {
	mock.Mock
}

func (m *MockSTS) GetCallerIdentity(
	ctx context.Context,
	in *sts.GetCallerIdentityInput,
	_ ...func(*sts.Options),
) (*sts.GetCallerIdentityOutput, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sts.GetCallerIdentityOutput), args.Error(1)
}

func missingStackError(name string) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "Stack with id " + name + " does not exist",
	}
}

func stackOutput(id string, status types.StackStatus) *cloudformation.DescribeStacksOutput {
	return &cloudformation.DescribeStacksOutput{
		Stacks: []types.Stack{{StackId: aws.String(id), StackStatus: status}},
	}
}

func newTestEngine(api CloudFormationAPI) (*CloudFormationEngine, *[]bool) {
	waits := make([]bool, 0)
	e := NewCloudFormationEngine(api, time.Minute)
	e.wait = func(_ context.Context, _ CloudFormationAPI, _ string, created bool, _ time.Duration) error {
		waits = append(waits, created)
		return nil
	}
	return e, &waits
}

func TestCloudFormationEngine_GetTemplate(t *testing.T) {
	t.Run("success - live template parsed", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		api := new(MockCloudFormation)
		api.On("GetTemplate", ctx, "MybucketappStack").Return(&cloudformation.GetTemplateOutput{
			TemplateBody: aws.String(`{"Resources": {"B": {"Type": "AWS::S3::Bucket"}}}`),
		}, nil)
		e, _ := newTestEngine(api)

		// act
		tpl, exists, err := e.GetTemplate(ctx, "MybucketappStack")

		// assert
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, "AWS::S3::Bucket", tpl.Resources["B"].Type)
	})
	t.Run("success - missing stack", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		api := new(MockCloudFormation)
		api.On("GetTemplate", ctx, "MybucketappStack").Return(nil, missingStackError("MybucketappStack"))
		e, _ := newTestEngine(api)

		// act
		tpl, exists, err := e.GetTemplate(ctx, "MybucketappStack")

		// assert
		assert.NoError(t, err)
		assert.False(t, exists)
		assert.Nil(t, tpl)
	})
	t.Run("failure - engine error is passed through", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		api := new(MockCloudFormation)
		cause := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
		api.On("GetTemplate", ctx, "MybucketappStack").Return(nil, cause)
		e, _ := newTestEngine(api)

		// act
		_, _, err := e.GetTemplate(ctx, "MybucketappStack")

		// assert
		var ee *ExternalEngineError
		assert.True(t, errors.As(err, &ee))
		assert.Equal(t, "get template", ee.Op)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "not authorized")
	})
}

func TestCloudFormationEngine_DeployStack(t *testing.T) {
	body := []byte(`{"Resources": {}}`)

	t.Run("success - missing stack is created", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		api := new(MockCloudFormation)
		api.On("DescribeStacks", ctx, "MybucketappStack").
			Return(nil, missingStackError("MybucketappStack")).Once()
		api.On("CreateStack", ctx, "MybucketappStack", string(body)).
			Return(&cloudformation.CreateStackOutput{StackId: aws.String("stack-id")}, nil)
		api.On("DescribeStacks", ctx, "MybucketappStack").
			Return(stackOutput("stack-id", types.StackStatusCreateComplete), nil).Once()
		e, waits := newTestEngine(api)

		// act
		result, err := e.DeployStack(ctx, "MybucketappStack", body)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, ResultCreated, result.Result)
		assert.Equal(t, "stack-id", result.StackID)
		assert.Equal(t, "CREATE_COMPLETE", result.Status)
		assert.Equal(t, []bool{true}, *waits)
		api.AssertExpectations(t)
	})
	t.Run("success - existing stack is updated", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		api := new(MockCloudFormation)
		api.On("DescribeStacks", ctx, "MybucketappStack").
			Return(stackOutput("stack-id", types.StackStatusCreateComplete), nil).Once()
		api.On("UpdateStack", ctx, "MybucketappStack", string(body)).
			Return(&cloudformation.UpdateStackOutput{StackId: aws.String("stack-id")}, nil)
		api.On("DescribeStacks", ctx, "MybucketappStack").
			Return(stackOutput("stack-id", types.StackStatusUpdateComplete), nil).Once()
		e, waits := newTestEngine(api)

		// act
		result, err := e.DeployStack(ctx, "MybucketappStack", body)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, ResultUpdated, result.Result)
		assert.Equal(t, "UPDATE_COMPLETE", result.Status)
		assert.Equal(t, []bool{false}, *waits)
	})
	t.Run("success - no updates to perform", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		api := new(MockCloudFormation)
		api.On("DescribeStacks", ctx, "MybucketappStack").
			Return(stackOutput("stack-id", types.StackStatusUpdateComplete), nil)
		api.On("UpdateStack", ctx, "MybucketappStack", string(body)).Return(nil, &smithy.GenericAPIError{
			Code:    "ValidationError",
			Message: "No updates are to be performed.",
		})
		e, waits := newTestEngine(api)

		// act
		result, err := e.DeployStack(ctx, "MybucketappStack", body)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, ResultUnchanged, result.Result)
		assert.Equal(t, "UPDATE_COMPLETE", result.Status)
		assert.Empty(t, *waits)
	})
	t.Run("failure - rejected template", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		api := new(MockCloudFormation)
		api.On("DescribeStacks", ctx, "MybucketappStack").
			Return(nil, missingStackError("MybucketappStack"))
		cause := &smithy.GenericAPIError{Code: "ValidationError", Message: "Template format error"}
		api.On("CreateStack", ctx, "MybucketappStack", string(body)).Return(nil, cause)
		e, waits := newTestEngine(api)

		// act
		result, err := e.DeployStack(ctx, "MybucketappStack", body)

		// assert
		var ee *ExternalEngineError
		assert.True(t, errors.As(err, &ee))
		assert.Equal(t, "create", ee.Op)
		assert.Equal(t, "MybucketappStack", ee.Stack)
		assert.ErrorIs(t, err, cause)
		assert.Nil(t, result)
		assert.Empty(t, *waits)
	})
}

func TestVerifyAccount(t *testing.T) {
	t.Run("success - account matches", func(t *testing.T) {
		ctx := context.Background()
		api := new(MockSTS)
		api.On("GetCallerIdentity", ctx).
			Return(&sts.GetCallerIdentityOutput{Account: aws.String("111111111111")}, nil)

		assert.NoError(t, VerifyAccount(ctx, api, "111111111111"))
	})
	t.Run("failure - account mismatch", func(t *testing.T) {
		ctx := context.Background()
		api := new(MockSTS)
		api.On("GetCallerIdentity", ctx).
			Return(&sts.GetCallerIdentityOutput{Account: aws.String("222222222222")}, nil)

		err := VerifyAccount(ctx, api, "111111111111")

		var me *AccountMismatchError
		assert.True(t, errors.As(err, &me))
		assert.Equal(t, "222222222222", me.Actual)
	})
}
