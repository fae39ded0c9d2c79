package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type DeploymentSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewDeploymentSQLiteStore(rdb, rwdb *sql.DB) *DeploymentSQLiteStore {
	return &DeploymentSQLiteStore{rdb, rwdb}
}

func (store *DeploymentSQLiteStore) CreateDeployment(
	ctx context.Context,
	synthID int64,
	environment, stackName string,
	status DeploymentStatus,
	message *string,
) (*Deployment, error) {
	d := &Deployment{
		DeploymentSynthID: synthID,
		Environment:       environment,
		StackName:         stackName,
		Status:            status,
		Message:           message,
	}
	query := `insert into deployments (
		deployment_synth_id,
		environment,
		stack_name,
		status,
		message
	)
	values ($1, $2, $3, $4, $5)
	returning deployment_id, created_on`
	if err := sqlscan.Get(
		ctx, store.rwdb, d, query,
		d.DeploymentSynthID,
		d.Environment,
		d.StackName,
		d.Status,
		d.Message,
	); err != nil {
		return nil, err
	}
	return d, nil
}

func (store *DeploymentSQLiteStore) ListDeployments(
	ctx context.Context,
	environment string,
	limit int64,
) ([]*Deployment, error) {
	query := `select * from deployments
	where environment = $1
	order by deployment_id desc
	limit $2`
	deployments := make([]*Deployment, 0)
	err := sqlscan.Select(ctx, store.rdb, &deployments, query, environment, limit)
	return deployments, err
}
