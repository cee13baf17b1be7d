package notifications_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"channel-service/internal/apperrors"
	"channel-service/internal/mocks"
	"channel-service/internal/models"
	"channel-service/internal/notifications"
	"channel-service/internal/repositories"
)

func TestNotifyStoresThenPushes(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	bc := new(mocks.BroadcasterMock)
	svc := notifications.NewService(repo, bc, zap.NewNop())

	in := models.Notification{TenantID: 1, RecipientID: 5, EventType: models.NotificationMention}
	stored := in
	stored.ID = 44
	stored.Priority = models.PriorityNormal

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.RecipientID == 5 && n.Priority == models.PriorityNormal
	})).Return(stored, nil).Once()
	bc.On("ToUser", mock.Anything, int64(5), models.NewEvent(models.EventNotification, stored)).Once()

	require.NoError(t, svc.Notify(context.Background(), in))
	repo.AssertExpectations(t)
	bc.AssertExpectations(t)
}

func TestNotifyDoesNotPushWhenStoreFails(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	bc := new(mocks.BroadcasterMock)
	svc := notifications.NewService(repo, bc, zap.NewNop())

	repo.On("Create", mock.Anything, mock.Anything).Return(models.Notification{}, errors.New("db down")).Once()

	err := svc.Notify(context.Background(), models.Notification{RecipientID: 5, EventType: models.NotificationReaction})
	require.Error(t, err)
	bc.AssertNotCalled(t, "ToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestListClampsLimitAndCountsUnread(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	svc := notifications.NewService(repo, new(mocks.BroadcasterMock), zap.NewNop())
	p := models.Principal{UserID: 5, TenantID: 1}

	items := []models.Notification{{ID: 1, RecipientID: 5}}
	repo.On("ListForUser", mock.Anything, int64(1), int64(5), true, 50).Return(items, nil).Once()
	repo.On("UnreadCount", mock.Anything, int64(1), int64(5)).Return(3, nil).Once()

	inbox, err := svc.List(context.Background(), p, true, 1000)
	require.NoError(t, err)
	assert.Equal(t, items, inbox.Items)
	assert.Equal(t, 3, inbox.Unread)
}

func TestMarkReadMapsMissingToNotFound(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	svc := notifications.NewService(repo, new(mocks.BroadcasterMock), zap.NewNop())
	p := models.Principal{UserID: 5, TenantID: 1}

	repo.On("MarkRead", mock.Anything, int64(1), int64(5), int64(9)).
		Return(fmt.Errorf("mark read: %w", repositories.ErrNotificationNotFound)).Once()
	repo.On("MarkRead", mock.Anything, int64(1), int64(5), int64(10)).Return(errors.New("db down")).Once()

	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(svc.MarkRead(context.Background(), p, 9)))
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(svc.MarkRead(context.Background(), p, 10)))
}

func TestMarkAllRead(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	svc := notifications.NewService(repo, new(mocks.BroadcasterMock), zap.NewNop())

	repo.On("MarkAllRead", mock.Anything, int64(1), int64(5)).Return(int64(4), nil).Once()

	n, err := svc.MarkAllRead(context.Background(), models.Principal{UserID: 5, TenantID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
