// Package persistence provides the data storage abstraction for workflow
// definitions and the execution ledger.
package persistence

import (
	"context"
	"time"

	"github.com/fieldline/automation/pkg/models"
)

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	All(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error

	// IncrementExecutions atomically bumps the workflow's execution counter
	// and records the last-executed timestamp.
	IncrementExecutions(ctx context.Context, id string, at time.Time) error
}

// ExecutionQuery narrows execution reads. Zero values mean "no constraint".
type ExecutionQuery struct {
	WorkflowID string
	From       time.Time
	To         time.Time
}

// ExecutionRepository stores execution records. Save must be atomic with
// respect to concurrent readers: a reader never observes a half-written
// record.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	Save(ctx context.Context, execution *models.Execution) error
	List(ctx context.Context, query ExecutionQuery) ([]*models.Execution, error)
	CountByWorkflow(ctx context.Context, workflowID string) (int64, error)
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
