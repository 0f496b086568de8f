package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// ExecutionRepository handles execution rows.
type ExecutionRepository struct {
	db *gorm.DB
}

func (er *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	record, err := encodeExecution(execution)
	if err != nil {
		return err
	}

	err = er.db.WithContext(ctx).Create(&record).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return persistence.NewExecutionError("Create", execution.ID, persistence.ErrExecutionAlreadyExists)
	}

	return err
}

func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	var record executionRecord

	err := er.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
	}

	return decodeExecution(record)
}

func (er *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	record, err := encodeExecution(execution)
	if err != nil {
		return err
	}

	result := er.db.WithContext(ctx).Model(&executionRecord{}).Where("id = ?", record.ID).Updates(map[string]any{
		"status":   record.Status,
		"document": record.Document,
	})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return persistence.NewExecutionError("Save", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (er *ExecutionRepository) List(ctx context.Context, query persistence.ExecutionQuery) ([]*models.Execution, error) {
	tx := er.db.WithContext(ctx).Model(&executionRecord{})

	if query.WorkflowID != "" {
		tx = tx.Where("workflow_id = ?", query.WorkflowID)
	}

	if !query.From.IsZero() {
		tx = tx.Where("started_at >= ?", query.From.UnixMilli())
	}

	if !query.To.IsZero() {
		tx = tx.Where("started_at <= ?", query.To.UnixMilli())
	}

	var records []executionRecord

	if err := tx.Order("started_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	executions := make([]*models.Execution, 0, len(records))

	for _, record := range records {
		execution, err := decodeExecution(record)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, nil
}

func (er *ExecutionRepository) CountByWorkflow(ctx context.Context, workflowID string) (int64, error) {
	var count int64

	err := er.db.WithContext(ctx).
		Model(&executionRecord{}).
		Where("workflow_id = ?", workflowID).
		Count(&count).Error

	return count, err
}

func encodeExecution(execution *models.Execution) (executionRecord, error) {
	document, err := json.Marshal(execution)
	if err != nil {
		return executionRecord{}, fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	return executionRecord{
		ID:         execution.ID,
		WorkflowID: execution.WorkflowID,
		Status:     string(execution.Status),
		StartedAt:  execution.StartedAt.UnixMilli(),
		Document:   document,
	}, nil
}

func decodeExecution(record executionRecord) (*models.Execution, error) {
	var execution models.Execution
	if err := json.Unmarshal(record.Document, &execution); err != nil {
		return nil, fmt.Errorf("failed to decode execution %s: %w", record.ID, err)
	}

	return &execution, nil
}
