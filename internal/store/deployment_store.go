package store

import (
	"context"
	"time"
)

type DeploymentStatus string

const (
	DeploymentDeployed  DeploymentStatus = "deployed"
	DeploymentUnchanged DeploymentStatus = "unchanged"
	DeploymentFailed    DeploymentStatus = "failed"
)

type Deployment struct {
	DeploymentID      int64            `json:"deployment_id"`
	DeploymentSynthID int64            `json:"synth_id"`
	Environment       string           `json:"environment"`
	StackName         string           `json:"stack_name"`
	Status            DeploymentStatus `json:"status"`
	Message           *string          `json:"message,omitempty"`
	CreatedOn         time.Time        `json:"created_on"`
}

type DeploymentStore interface {
	CreateDeployment(context.Context, int64, string, string, DeploymentStatus, *string) (*Deployment, error)
	ListDeployments(context.Context, string, int64) ([]*Deployment, error)
}
