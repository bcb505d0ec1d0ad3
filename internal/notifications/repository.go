package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

type Repository interface {
	CreateNotifications(ctx context.Context, items []Notification) error
	ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, userID uint, at time.Time) error
	LogDelivery(ctx context.Context, entry *DeliveryLog) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository works on a plain handle or on one inside a transaction.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateNotifications(ctx context.Context, items []Notification) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *gormRepository) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]Notification, error) {
	var items []Notification
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

func (r *gormRepository) MarkRead(ctx context.Context, id uuid.UUID, userID uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification %s: %w", id, workflows.ErrNotFound)
	}
	return nil
}

func (r *gormRepository) LogDelivery(ctx context.Context, entry *DeliveryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
