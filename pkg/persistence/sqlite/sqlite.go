// Package sqlite provides a gorm-backed SQLite persistence implementation for
// single-binary durable deployments. Full documents are stored as JSON blobs
// next to the columns the repositories query on.
package sqlite

import (
	"context"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldline/automation/pkg/persistence"
)

type workflowRecord struct {
	ID          string `gorm:"primaryKey"`
	Status      string `gorm:"index"`
	TriggerType string `gorm:"index"`
	Document    []byte
	CreatedAt   int64
	UpdatedAt   int64
}

type executionRecord struct {
	ID         string `gorm:"primaryKey"`
	WorkflowID string `gorm:"index"`
	Status     string `gorm:"index"`
	StartedAt  int64  `gorm:"index"`
	Document   []byte
}

// Persistence implements persistence.Persistence on top of SQLite via gorm.
type Persistence struct {
	db            *gorm.DB
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

// NewPersistence opens (or creates) the SQLite database at the given path and
// migrates the schema.
func NewPersistence(databaseURL string) (*Persistence, error) {
	path := strings.Replace(databaseURL, "sqlite://", "", 1)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&workflowRecord{}, &executionRecord{}); err != nil {
		return nil, err
	}

	return &Persistence{
		db:            db,
		workflowRepo:  &WorkflowRepository{db: db},
		executionRepo: &ExecutionRepository{db: db},
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
