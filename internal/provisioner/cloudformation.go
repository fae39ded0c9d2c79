package provisioner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/google/uuid"
	"github.com/haatos/mybucketapp/internal/template"
)

const DefaultMaxWait = 30 * time.Minute

type Result string

const (
	ResultCreated   Result = "created"
	ResultUpdated   Result = "updated"
	ResultUnchanged Result = "unchanged"
)

type DeployResult struct {
	StackName string `json:"stack_name"`
	StackID   string `json:"stack_id"`
	Result    Result `json:"result"`
	Status    string `json:"status"`
}

// Engine is the provisioning engine the descriptors are handed to.
type Engine interface {
	GetTemplate(ctx context.Context, stackName string) (*template.Template, bool, error)
	DeployStack(ctx context.Context, stackName string, body []byte) (*DeployResult, error)
}

// CloudFormationAPI is the subset of the CloudFormation client the engine
// uses.
type CloudFormationAPI interface {
	DescribeStacks(context.Context, *cloudformation.DescribeStacksInput, ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	GetTemplate(context.Context, *cloudformation.GetTemplateInput, ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error)
	CreateStack(context.Context, *cloudformation.CreateStackInput, ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(context.Context, *cloudformation.UpdateStackInput, ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
}

type waitFunc func(ctx context.Context, api CloudFormationAPI, stackName string, created bool, maxWait time.Duration) error

type CloudFormationEngine struct {
	api     CloudFormationAPI
	maxWait time.Duration
	wait    waitFunc
}

func NewCloudFormationEngine(api CloudFormationAPI, maxWait time.Duration) *CloudFormationEngine {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &CloudFormationEngine{api: api, maxWait: maxWait, wait: waitForStack}
}

func (e *CloudFormationEngine) describeStack(ctx context.Context, stackName string) (*types.Stack, error) {
	out, err := e.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if isStackMissing(err) {
			return nil, nil
		}
		return nil, engineError(stackName, "describe", err)
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return &out.Stacks[0], nil
}

// GetTemplate returns the template the live stack was last deployed with.
// The boolean is false when the stack does not exist.
func (e *CloudFormationEngine) GetTemplate(
	ctx context.Context,
	stackName string,
) (*template.Template, bool, error) {
	out, err := e.api.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(stackName),
		TemplateStage: types.TemplateStageOriginal,
	})
	if err != nil {
		if isStackMissing(err) {
			return nil, false, nil
		}
		return nil, false, engineError(stackName, "get template", err)
	}
	t, err := template.Parse([]byte(aws.ToString(out.TemplateBody)))
	if err != nil {
		return nil, true, fmt.Errorf("live template of %s: %w", stackName, err)
	}
	return t, true, nil
}

// DeployStack creates the stack or updates it in place and waits until the
// engine reports a terminal state.
func (e *CloudFormationEngine) DeployStack(
	ctx context.Context,
	stackName string,
	body []byte,
) (*DeployResult, error) {
	existing, err := e.describeStack(ctx, stackName)
	if err != nil {
		return nil, err
	}

	result := &DeployResult{StackName: stackName}
	capabilities := []types.Capability{types.CapabilityCapabilityNamedIam}
	token := "mybucketapp-" + uuid.NewString()

	if existing == nil {
		slog.Info("creating stack", "stack", stackName)
		out, err := e.api.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:          aws.String(stackName),
			TemplateBody:       aws.String(string(body)),
			Capabilities:       capabilities,
			ClientRequestToken: aws.String(token),
		})
		if err != nil {
			return nil, engineError(stackName, "create", err)
		}
		result.StackID = aws.ToString(out.StackId)
		result.Result = ResultCreated
	} else {
		slog.Info("updating stack", "stack", stackName, "status", existing.StackStatus)
		out, err := e.api.UpdateStack(ctx, &cloudformation.UpdateStackInput{
			StackName:          aws.String(stackName),
			TemplateBody:       aws.String(string(body)),
			Capabilities:       capabilities,
			ClientRequestToken: aws.String(token),
		})
		if err != nil {
			if isNoUpdates(err) {
				result.StackID = aws.ToString(existing.StackId)
				result.Result = ResultUnchanged
				result.Status = string(existing.StackStatus)
				return result, nil
			}
			return nil, engineError(stackName, "update", err)
		}
		result.StackID = aws.ToString(out.StackId)
		result.Result = ResultUpdated
	}

	if err := e.wait(ctx, e.api, stackName, result.Result == ResultCreated, e.maxWait); err != nil {
		return nil, engineError(stackName, "wait", err)
	}
	final, err := e.describeStack(ctx, stackName)
	if err != nil {
		return nil, err
	}
	if final != nil {
		result.Status = string(final.StackStatus)
	}
	return result, nil
}

func waitForStack(
	ctx context.Context,
	api CloudFormationAPI,
	stackName string,
	created bool,
	maxWait time.Duration,
) error {
	input := &cloudformation.DescribeStacksInput{StackName: aws.String(stackName)}
	if created {
		return cloudformation.NewStackCreateCompleteWaiter(api).Wait(ctx, input, maxWait)
	}
	return cloudformation.NewStackUpdateCompleteWaiter(api).Wait(ctx, input, maxWait)
}
