package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haatos/mybucketapp/internal/provisioner"
	"github.com/haatos/mybucketapp/internal/store"
	"github.com/haatos/mybucketapp/internal/template"
)

type DeploymentWriter interface {
	CreateDeployment(context.Context, int64, string, string, store.DeploymentStatus, *string) (*store.Deployment, error)
}

type DeploymentReader interface {
	ListDeployments(context.Context, string, int64) ([]*store.Deployment, error)
}

type DeploymentStore interface {
	DeploymentWriter
	DeploymentReader
}

// StackDiff is the set of changes deploying a synthesized template would
// make to one stack.
type StackDiff struct {
	Stack   string            `json:"stack"`
	Exists  bool              `json:"exists"`
	Changes []template.Change `json:"changes"`
}

type DeployService struct {
	synthService    *SynthService
	clients         provisioner.ClientFactory
	deploymentStore DeploymentStore
}

func NewDeployService(
	synthService *SynthService,
	clients provisioner.ClientFactory,
	deploymentStore DeploymentStore,
) *DeployService {
	return &DeployService{
		synthService:    synthService,
		clients:         clients,
		deploymentStore: deploymentStore,
	}
}

// Diff compares the synthesized templates of an environment with the
// templates of the live stacks.
func (s *DeployService) Diff(
	ctx context.Context,
	envName string,
	stacks ...string,
) ([]StackDiff, error) {
	ds, names, templates, err := s.synthService.Templates(envName, stacks...)
	if err != nil {
		return nil, err
	}
	engine, err := s.clients.Engine(ctx, ds.Environment)
	if err != nil {
		return nil, err
	}

	diffs := make([]StackDiff, 0, len(names))
	for _, name := range names {
		live, exists, err := engine.GetTemplate(ctx, name)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, StackDiff{
			Stack:   name,
			Exists:  exists,
			Changes: template.Diff(live, templates[name]),
		})
	}
	return diffs, nil
}

// DiffLocal compares the synthesized templates with the latest recorded
// synth of each stack without contacting the engine.
func (s *DeployService) DiffLocal(
	ctx context.Context,
	envName string,
	stacks ...string,
) ([]StackDiff, error) {
	_, names, templates, err := s.synthService.Templates(envName, stacks...)
	if err != nil {
		return nil, err
	}

	diffs := make([]StackDiff, 0, len(names))
	for _, name := range names {
		latest, err := s.synthService.GetLatestSynth(ctx, envName, name)
		if err != nil {
			return nil, err
		}
		var previous *template.Template
		if latest != nil {
			previous, err = template.Parse([]byte(latest.Template))
			if err != nil {
				return nil, fmt.Errorf("synth %d: %w", latest.SynthID, err)
			}
		}
		diffs = append(diffs, StackDiff{
			Stack:   name,
			Exists:  latest != nil,
			Changes: template.Diff(previous, templates[name]),
		})
	}
	return diffs, nil
}

// Deploy synthesizes the environment and hands each stack to the engine in
// order. Every outcome is recorded; the first failure stops the run.
func (s *DeployService) Deploy(
	ctx context.Context,
	envName string,
	stacks ...string,
) ([]*store.Deployment, error) {
	ds, err := s.synthService.DescriptorSet(envName)
	if err != nil {
		return nil, err
	}
	synths, err := s.synthService.Synthesize(ctx, envName, stacks...)
	if err != nil {
		return nil, err
	}
	engine, err := s.clients.Engine(ctx, ds.Environment)
	if err != nil {
		return nil, err
	}

	deployments := make([]*store.Deployment, 0, len(synths))
	for _, synth := range synths {
		slog.Info("deploying stack", "environment", envName, "stack", synth.StackName)
		result, deployErr := engine.DeployStack(ctx, synth.StackName, []byte(synth.Template))

		status := store.DeploymentDeployed
		var message *string
		switch {
		case deployErr != nil:
			status = store.DeploymentFailed
			msg := deployErr.Error()
			message = &msg
		case result.Result == provisioner.ResultUnchanged:
			status = store.DeploymentUnchanged
		default:
			msg := fmt.Sprintf("%s %s", result.Result, result.Status)
			message = &msg
		}

		d, err := s.deploymentStore.CreateDeployment(
			ctx, synth.SynthID, envName, synth.StackName, status, message,
		)
		if err != nil {
			return deployments, err
		}
		deployments = append(deployments, d)
		if deployErr != nil {
			slog.Error("deployment failed",
				"environment", envName,
				"stack", synth.StackName,
				"error", deployErr,
			)
			return deployments, deployErr
		}
	}
	return deployments, nil
}

func (s *DeployService) ListDeployments(
	ctx context.Context,
	envName string,
	limit int64,
) ([]*store.Deployment, error) {
	if _, err := s.synthService.DescriptorSet(envName); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	return s.deploymentStore.ListDeployments(ctx, envName, limit)
}

type DeployServicer interface {
	Diff(context.Context, string, ...string) ([]StackDiff, error)
	DiffLocal(context.Context, string, ...string) ([]StackDiff, error)
	Deploy(context.Context, string, ...string) ([]*store.Deployment, error)
	ListDeployments(context.Context, string, int64) ([]*store.Deployment, error)
}
