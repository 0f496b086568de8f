// Package memory provides an in-memory persistence implementation for tests
// and local development.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// Persistence keeps all records in process memory behind a read-write mutex.
// Records are cloned on the way in and out so callers never share memory with
// the store; combined with the mutex this gives readers a consistent view of
// every record.
type Persistence struct {
	mu         sync.RWMutex
	workflows  map[string]*models.Workflow
	executions map[string]*models.Execution
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflows:  make(map[string]*models.Workflow),
		executions: make(map[string]*models.Execution),
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return &workflowRepository{p: p}
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return &executionRepository{p: p}
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func cloneWorkflow(w *models.Workflow) *models.Workflow {
	data, _ := json.Marshal(w)

	var out models.Workflow

	_ = json.Unmarshal(data, &out)

	return &out
}

func cloneExecution(e *models.Execution) *models.Execution {
	data, _ := json.Marshal(e)

	var out models.Execution

	_ = json.Unmarshal(data, &out)

	return &out
}

type workflowRepository struct {
	p *Persistence
}

func (r *workflowRepository) All(_ context.Context) ([]*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(r.p.workflows))
	for _, w := range r.p.workflows {
		workflows = append(workflows, cloneWorkflow(w))
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	w, ok := r.p.workflows[id]
	if !ok {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return cloneWorkflow(w), nil
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.workflows[workflow.ID] = cloneWorkflow(workflow)

	return nil
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.workflows[id]; !ok {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	delete(r.p.workflows, id)

	return nil
}

func (r *workflowRepository) IncrementExecutions(_ context.Context, id string, at time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	w, ok := r.p.workflows[id]
	if !ok {
		return persistence.NewWorkflowError("IncrementExecutions", id, persistence.ErrWorkflowNotFound)
	}

	w.TotalExecutions++
	ts := at
	w.LastExecutedAt = &ts

	return nil
}

type executionRepository struct {
	p *Persistence
}

func (r *executionRepository) Create(_ context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.executions[execution.ID]; ok {
		return persistence.NewExecutionError("Create", execution.ID, persistence.ErrExecutionAlreadyExists)
	}

	r.p.executions[execution.ID] = cloneExecution(execution)

	return nil
}

func (r *executionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	e, ok := r.p.executions[id]
	if !ok {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return cloneExecution(e), nil
}

func (r *executionRepository) Save(_ context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.executions[execution.ID]; !ok {
		return persistence.NewExecutionError("Save", execution.ID, persistence.ErrExecutionNotFound)
	}

	r.p.executions[execution.ID] = cloneExecution(execution)

	return nil
}

func (r *executionRepository) List(_ context.Context, query persistence.ExecutionQuery) ([]*models.Execution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	executions := make([]*models.Execution, 0)

	for _, e := range r.p.executions {
		if query.WorkflowID != "" && e.WorkflowID != query.WorkflowID {
			continue
		}

		if !query.From.IsZero() && e.StartedAt.Before(query.From) {
			continue
		}

		if !query.To.IsZero() && e.StartedAt.After(query.To) {
			continue
		}

		executions = append(executions, cloneExecution(e))
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.Before(executions[j].StartedAt)
	})

	return executions, nil
}

func (r *executionRepository) CountByWorkflow(_ context.Context, workflowID string) (int64, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var count int64

	for _, e := range r.p.executions {
		if e.WorkflowID == workflowID {
			count++
		}
	}

	return count, nil
}
