package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ActiveIDsWithRoles(ctx context.Context, roles []string) ([]uint, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uint) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, workflows.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *gormRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", email, workflows.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *gormRepository) ActiveIDsWithRoles(ctx context.Context, roles []string) ([]uint, error) {
	return ActiveIDsWithRoles(ctx, r.db, roles)
}

// ActiveIDsWithRoles returns ids of active users holding any of roles. db may
// be a transaction handle.
func ActiveIDsWithRoles(ctx context.Context, db *gorm.DB, roles []string) ([]uint, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var ids []uint
	err := db.WithContext(ctx).
		Model(&User{}).
		Where("is_active = ? AND role IN ?", true, roles).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return ids, nil
}
