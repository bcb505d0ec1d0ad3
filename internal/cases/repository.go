package cases

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"baaseteen/case-portal/case-portal-backend/internal/database"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// Repository provides case reads and transactional writes.
type Repository interface {
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error
	GetCase(ctx context.Context, id uint) (*Case, error)
	ListStatusHistory(ctx context.Context, caseID uint) ([]StatusHistory, error)
	ListComments(ctx context.Context, caseID uint) ([]CaseComment, error)
	CreateIdentification(ctx context.Context, ident *Identification) error
}

// Tx is the set of writes available inside one atomic unit. Lock methods
// hold the row until the transaction ends.
type Tx interface {
	LockCase(ctx context.Context, id uint) (*Case, error)
	CreateCase(ctx context.Context, c *Case) error
	SaveCase(ctx context.Context, c *Case) error
	AppendStatusHistory(ctx context.Context, entry *StatusHistory) error
	AddComment(ctx context.Context, comment *CaseComment) error
	LockIdentification(ctx context.Context, id uint) (*Identification, error)
	SaveIdentification(ctx context.Context, ident *Identification) error
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
		return fn(NewTx(db))
	})
}

func (r *gormRepository) GetCase(ctx context.Context, id uint) (*Case, error) {
	var c Case
	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("case %d: %w", id, workflows.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return &c, nil
}

func (r *gormRepository) ListStatusHistory(ctx context.Context, caseID uint) ([]StatusHistory, error) {
	var history []StatusHistory
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at ASC, id ASC").
		Find(&history).Error
	return history, err
}

func (r *gormRepository) ListComments(ctx context.Context, caseID uint) ([]CaseComment, error) {
	var comments []CaseComment
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *gormRepository) CreateIdentification(ctx context.Context, ident *Identification) error {
	return r.db.WithContext(ctx).Create(ident).Error
}

type gormTx struct {
	db *gorm.DB
}

// NewTx wraps a gorm handle that is already inside a transaction. Other
// packages use it to compose case writes with their own.
func NewTx(db *gorm.DB) Tx {
	return &gormTx{db: db}
}

func (t *gormTx) LockCase(ctx context.Context, id uint) (*Case, error) {
	var c Case
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("case %d: %w", id, workflows.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock case: %w", err)
	}
	return &c, nil
}

func (t *gormTx) CreateCase(ctx context.Context, c *Case) error {
	return t.db.WithContext(ctx).Create(c).Error
}

func (t *gormTx) SaveCase(ctx context.Context, c *Case) error {
	return t.db.WithContext(ctx).Save(c).Error
}

func (t *gormTx) AppendStatusHistory(ctx context.Context, entry *StatusHistory) error {
	return t.db.WithContext(ctx).Create(entry).Error
}

func (t *gormTx) AddComment(ctx context.Context, comment *CaseComment) error {
	return t.db.WithContext(ctx).Create(comment).Error
}

func (t *gormTx) LockIdentification(ctx context.Context, id uint) (*Identification, error) {
	var ident Identification
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ident, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("identification %d: %w", id, workflows.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock identification: %w", err)
	}
	return &ident, nil
}

func (t *gormTx) SaveIdentification(ctx context.Context, ident *Identification) error {
	return t.db.WithContext(ctx).Save(ident).Error
}
