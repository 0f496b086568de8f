package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// WorkflowRepository handles workflow rows.
type WorkflowRepository struct {
	db *gorm.DB
}

func (wr *WorkflowRepository) All(ctx context.Context) ([]*models.Workflow, error) {
	var records []workflowRecord

	if err := wr.db.WithContext(ctx).Order("created_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(records))

	for _, record := range records {
		workflow, err := decodeWorkflow(record)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	var record workflowRecord

	err := wr.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	return decodeWorkflow(record)
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	document, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	record := workflowRecord{
		ID:          workflow.ID,
		Status:      string(workflow.Status),
		TriggerType: string(workflow.Trigger.Type),
		Document:    document,
		CreatedAt:   workflow.CreatedAt.UnixMilli(),
		UpdatedAt:   workflow.UpdatedAt.UnixMilli(),
	}

	return wr.db.WithContext(ctx).Save(&record).Error
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result := wr.db.WithContext(ctx).Delete(&workflowRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// IncrementExecutions runs the read-modify-write inside one transaction so
// concurrent executions never lose an increment.
func (wr *WorkflowRepository) IncrementExecutions(ctx context.Context, id string, at time.Time) error {
	return wr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record workflowRecord

		err := tx.First(&record, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return persistence.NewWorkflowError("IncrementExecutions", id, persistence.ErrWorkflowNotFound)
		}

		if err != nil {
			return err
		}

		workflow, err := decodeWorkflow(record)
		if err != nil {
			return err
		}

		workflow.TotalExecutions++
		ts := at
		workflow.LastExecutedAt = &ts

		document, err := json.Marshal(workflow)
		if err != nil {
			return err
		}

		record.Document = document

		return tx.Save(&record).Error
	})
}

func decodeWorkflow(record workflowRecord) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := json.Unmarshal(record.Document, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", record.ID, err)
	}

	return &workflow, nil
}
