package dashboard

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// StatusCount is the number of cases in one status.
type StatusCount struct {
	Status workflows.Status `json:"status"`
	Count  int64            `json:"count"`
}

// CounselorLoad is the number of non-terminal cases held by a counselor.
type CounselorLoad struct {
	CounselorID uint  `json:"counselor_id"`
	OpenCases   int64 `json:"open_cases"`
}

// AggregateRepository reads the raw counts behind the dashboard.
type AggregateRepository interface {
	CountByStatus(ctx context.Context, caseType string) ([]StatusCount, error)
	CounselorLoads(ctx context.Context, caseType string, openStatuses []workflows.Status) ([]CounselorLoad, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) AggregateRepository {
	return &gormRepository{db: db}
}

func (r *gormRepository) scoped(ctx context.Context, caseType string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&cases.Case{})
	if caseType != "" {
		q = q.Where("case_type = ?", caseType)
	}
	return q
}

func (r *gormRepository) CountByStatus(ctx context.Context, caseType string) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.scoped(ctx, caseType).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count cases by status: %w", err)
	}
	return counts, nil
}

func (r *gormRepository) CounselorLoads(ctx context.Context, caseType string, openStatuses []workflows.Status) ([]CounselorLoad, error) {
	var loads []CounselorLoad
	err := r.scoped(ctx, caseType).
		Select("assigned_counselor_id AS counselor_id, COUNT(*) AS open_cases").
		Where("assigned_counselor_id IS NOT NULL AND status IN ?", openStatuses).
		Group("assigned_counselor_id").
		Order("open_cases DESC, counselor_id").
		Scan(&loads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count counselor workload: %w", err)
	}
	return loads, nil
}
