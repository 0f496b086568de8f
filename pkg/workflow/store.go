// Package workflow provides the workflow store, save-time validation and
// trigger matching.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// Store holds workflow definitions and their activation status. Status changes
// take effect for subsequent events only: in-flight executions keep running
// against the snapshot they were created from.
type Store struct {
	persistence persistence.Persistence
	validator   *Validator
}

func NewStore(p persistence.Persistence, configs ConfigValidator) *Store {
	return &Store{
		persistence: p,
		validator:   NewValidator(configs),
	}
}

// Save validates the workflow's trigger, filter and action shape invariants
// and persists it. A failed validation never reaches the persistence layer.
func (s *Store) Save(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	// Actions are keyed by ID throughout the scheduler and the ledger, so
	// every action needs one before the workflow can run.
	for _, action := range workflow.Actions {
		if action != nil && action.ID == "" {
			action.ID = uuid.New().String()
		}
	}

	if err := s.validator.Validate(workflow); err != nil {
		return nil, err
	}

	now := time.Now()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if err := s.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// GetByID fetches one workflow.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return s.persistence.WorkflowRepository().GetByID(ctx, id)
}

// All returns every stored workflow, soft-deleted ones included.
func (s *Store) All(ctx context.Context) ([]*models.Workflow, error) {
	return s.persistence.WorkflowRepository().All(ctx)
}

// ActiveForTrigger returns the active workflows listening for the given
// trigger type, optionally narrowed by pipeline.
func (s *Store) ActiveForTrigger(ctx context.Context, triggerType models.TriggerType, pipeline string) ([]*models.Workflow, error) {
	all, err := s.persistence.WorkflowRepository().All(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if !workflow.IsActive() {
			continue
		}

		if workflow.Trigger.Type != triggerType {
			continue
		}

		if workflow.Trigger.Pipeline != "" && pipeline != "" && workflow.Trigger.Pipeline != pipeline {
			continue
		}

		matching = append(matching, workflow)
	}

	return matching, nil
}

// SetStatus transitions the workflow's activation status. The change affects
// only future trigger matching.
func (s *Store) SetStatus(ctx context.Context, id string, status models.WorkflowStatus) (*models.Workflow, error) {
	switch status {
	case models.WorkflowStatusActive, models.WorkflowStatusPaused, models.WorkflowStatusDraft:
	default:
		return nil, fmt.Errorf("%w: invalid workflow status %q", ErrValidation, status)
	}

	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.Status = status
	workflow.UpdatedAt = time.Now()

	if err := s.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Delete removes a workflow. When executions still reference it the workflow
// is soft-deleted instead, preserving the audit history.
func (s *Store) Delete(ctx context.Context, id string) error {
	count, err := s.persistence.ExecutionRepository().CountByWorkflow(ctx, id)
	if err != nil {
		return err
	}

	if count > 0 {
		workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, id)
		if err != nil {
			return err
		}

		now := time.Now()
		workflow.DeletedAt = &now
		workflow.Status = models.WorkflowStatusPaused
		workflow.UpdatedAt = now

		return s.persistence.WorkflowRepository().Save(ctx, workflow)
	}

	return s.persistence.WorkflowRepository().Delete(ctx, id)
}

// RecordExecution atomically bumps the workflow's execution counters.
func (s *Store) RecordExecution(ctx context.Context, id string, at time.Time) error {
	return s.persistence.WorkflowRepository().IncrementExecutions(ctx, id, at)
}
