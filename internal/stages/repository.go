package stages

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repository interface {
	ListActiveStages(ctx context.Context) ([]WorkflowStage, error)
	CreateStage(ctx context.Context, stage *WorkflowStage) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) ListActiveStages(ctx context.Context) ([]WorkflowStage, error) {
	var stages []WorkflowStage
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow stages: %w", err)
	}
	return stages, nil
}

func (r *gormRepository) CreateStage(ctx context.Context, stage *WorkflowStage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}
