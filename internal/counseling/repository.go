package counseling

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/database"
	"baaseteen/case-portal/case-portal-backend/internal/notifications"
	"baaseteen/case-portal/case-portal-backend/internal/users"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

type Repository interface {
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error
	GetForm(ctx context.Context, id uint) (*Form, error)
	ListSections(ctx context.Context, formID uint) ([]Section, error)
}

// Tx extends the case writes with form writes. Callers lock the case before
// the form.
type Tx interface {
	cases.Tx
	LockForm(ctx context.Context, id uint) (*Form, error)
	// FindFormByCase returns nil, nil when the case has no form yet.
	FindFormByCase(ctx context.Context, caseID uint) (*Form, error)
	CreateForm(ctx context.Context, f *Form) error
	SaveForm(ctx context.Context, f *Form) error
	// SaveSection inserts or replaces the section named s.Name on s.FormID
	// and sets s.ID.
	SaveSection(ctx context.Context, s *Section) error
	ActiveUserIDsWithRoles(ctx context.Context, roles []string) ([]uint, error)
	CreateNotifications(ctx context.Context, items []notifications.Notification) error
}

type gormRepository struct {
	db     *gorm.DB
	runner *database.Runner
}

func NewRepository(db *gorm.DB, runner *database.Runner) Repository {
	return &gormRepository{db: db, runner: runner}
}

func (r *gormRepository) RunInTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return r.runner.Run(ctx, func(db *gorm.DB) error {
		return fn(&gormTx{
			Tx:            cases.NewTx(db),
			db:            db,
			notifications: notifications.NewRepository(db),
		})
	})
}

func (r *gormRepository) GetForm(ctx context.Context, id uint) (*Form, error) {
	var f Form
	err := r.db.WithContext(ctx).First(&f, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("counseling form %d: %w", id, workflows.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get counseling form: %w", err)
	}
	return &f, nil
}

func (r *gormRepository) ListSections(ctx context.Context, formID uint) ([]Section, error) {
	var sections []Section
	err := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("id ASC").
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

type gormTx struct {
	cases.Tx
	db            *gorm.DB
	notifications notifications.Repository
}

func (t *gormTx) LockForm(ctx context.Context, id uint) (*Form, error) {
	var f Form
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&f, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("counseling form %d: %w", id, workflows.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock counseling form: %w", err)
	}
	return &f, nil
}

func (t *gormTx) FindFormByCase(ctx context.Context, caseID uint) (*Form, error) {
	var f Form
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("case_id = ?", caseID).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find counseling form: %w", err)
	}
	return &f, nil
}

func (t *gormTx) CreateForm(ctx context.Context, f *Form) error {
	return t.db.WithContext(ctx).Create(f).Error
}

func (t *gormTx) SaveForm(ctx context.Context, f *Form) error {
	return t.db.WithContext(ctx).Save(f).Error
}

func (t *gormTx) SaveSection(ctx context.Context, s *Section) error {
	return t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "form_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_by", "updated_at"}),
		}).
		Create(s).Error
}

func (t *gormTx) ActiveUserIDsWithRoles(ctx context.Context, roles []string) ([]uint, error) {
	return users.ActiveIDsWithRoles(ctx, t.db, roles)
}

func (t *gormTx) CreateNotifications(ctx context.Context, items []notifications.Notification) error {
	return t.notifications.CreateNotifications(ctx, items)
}
