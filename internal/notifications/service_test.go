package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

func TestService_ListAndMarkRead(t *testing.T) {
	repo := &memoryRepository{}
	first := Notification{ID: uuid.New(), UserID: 1, Title: "one"}
	second := Notification{ID: uuid.New(), UserID: 1, Title: "two"}
	other := Notification{ID: uuid.New(), UserID: 2, Title: "other"}
	require.NoError(t, repo.CreateNotifications(context.Background(), []Notification{first, second, other}))

	svc := NewService(repo, nil, zap.NewNop())
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	items, err := svc.GetUserNotifications(context.Background(), 1, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, svc.MarkNotificationAsRead(context.Background(), 1, first.ID))

	unread, err := svc.GetUserNotifications(context.Background(), 1, ListOptions{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Title)
}

func TestService_MarkReadOfAnotherUsersNotification(t *testing.T) {
	repo := &memoryRepository{}
	n := Notification{ID: uuid.New(), UserID: 2}
	require.NoError(t, repo.CreateNotifications(context.Background(), []Notification{n}))

	svc := NewService(repo, nil, zap.NewNop())
	err := svc.MarkNotificationAsRead(context.Background(), 1, n.ID)
	assert.ErrorIs(t, err, workflows.ErrNotFound)
}

func TestListOptions_Normalized(t *testing.T) {
	opts := ListOptions{Limit: 1000, Offset: -3}.normalized()
	assert.Equal(t, maxPageSize, opts.Limit)
	assert.Equal(t, 0, opts.Offset)

	assert.Equal(t, defaultPageSize, ListOptions{}.normalized().Limit)
}
