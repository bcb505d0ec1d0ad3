package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/notifications/websocket"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service exposes a user's in-app notifications and live connection.
type Service struct {
	repo      Repository
	wsManager *websocket.Manager
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new notification service
func NewService(repo Repository, wsManager *websocket.Manager, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		wsManager: wsManager,
		logger:    logger,
		now:       time.Now,
	}
}

// ListOptions pages through a user's notifications.
type ListOptions struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

func (o ListOptions) normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultPageSize
	}
	if o.Limit > maxPageSize {
		o.Limit = maxPageSize
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// GetUserNotifications returns the newest notifications first.
func (s *Service) GetUserNotifications(ctx context.Context, userID uint, opts ListOptions) ([]Notification, error) {
	opts = opts.normalized()
	items, err := s.repo.ListForUser(ctx, userID, opts.UnreadOnly, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Notification{}
	}
	return items, nil
}

// MarkNotificationAsRead marks one of the user's notifications read.
func (s *Service) MarkNotificationAsRead(ctx context.Context, userID uint, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID, s.now()); err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

// WebSocket returns the live connection manager.
func (s *Service) WebSocket() *websocket.Manager {
	return s.wsManager
}
