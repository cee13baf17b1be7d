package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"channel-service/internal/activity"
	"channel-service/internal/identity"
	"channel-service/internal/models"
	"channel-service/internal/notifications"
	"channel-service/internal/presence"
	"channel-service/internal/registry"
)

type BroadcasterMock struct {
	mock.Mock
}

var _ registry.Broadcaster = (*BroadcasterMock)(nil)

func (m *BroadcasterMock) ToUser(ctx context.Context, userID int64, event models.Event) {
	m.Called(ctx, userID, event)
}

func (m *BroadcasterMock) ToChannel(ctx context.Context, channelID int64, event models.Event, exclude int64) {
	m.Called(ctx, channelID, event, exclude)
}

type NotifierMock struct {
	mock.Mock
}

var _ notifications.Notifier = (*NotifierMock)(nil)

func (m *NotifierMock) Notify(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type ActivityLoggerMock struct {
	mock.Mock
}

var _ activity.Logger = (*ActivityLoggerMock)(nil)

func (m *ActivityLoggerMock) Log(ctx context.Context, entry models.Activity) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type DirectoryMock struct {
	mock.Mock
}

var _ identity.Directory = (*DirectoryMock)(nil)

func (m *DirectoryMock) Profile(ctx context.Context, tenantID int64, userID int64) models.UserProfile {
	args := m.Called(ctx, tenantID, userID)
	var r0 models.UserProfile
	if val := args.Get(0); val != nil {
		r0 = val.(models.UserProfile)
	}
	return r0
}

func (m *DirectoryMock) Profiles(ctx context.Context, tenantID int64, userIDs []int64) map[int64]models.UserProfile {
	args := m.Called(ctx, tenantID, userIDs)
	var r0 map[int64]models.UserProfile
	if val := args.Get(0); val != nil {
		r0 = val.(map[int64]models.UserProfile)
	}
	return r0
}

type VerifierMock struct {
	mock.Mock
}

var _ identity.Verifier = (*VerifierMock)(nil)

func (m *VerifierMock) ValidateToken(ctx context.Context, token string) (models.Principal, error) {
	args := m.Called(ctx, token)
	var r0 models.Principal
	if val := args.Get(0); val != nil {
		r0 = val.(models.Principal)
	}
	return r0, args.Error(1)
}

type PresenceTrackerMock struct {
	mock.Mock
}

var _ presence.Tracker = (*PresenceTrackerMock)(nil)

func (m *PresenceTrackerMock) SetOnline(ctx context.Context, tenantID int64, userID int64) error {
	args := m.Called(ctx, tenantID, userID)
	return args.Error(0)
}

func (m *PresenceTrackerMock) SetOffline(ctx context.Context, tenantID int64, userID int64) error {
	args := m.Called(ctx, tenantID, userID)
	return args.Error(0)
}

func (m *PresenceTrackerMock) Status(ctx context.Context, tenantID int64, userID int64) (presence.Status, error) {
	args := m.Called(ctx, tenantID, userID)
	var r0 presence.Status
	if val := args.Get(0); val != nil {
		r0 = val.(presence.Status)
	}
	return r0, args.Error(1)
}

func (m *PresenceTrackerMock) Statuses(ctx context.Context, tenantID int64, userIDs []int64) ([]presence.Status, error) {
	args := m.Called(ctx, tenantID, userIDs)
	var r0 []presence.Status
	if val := args.Get(0); val != nil {
		r0 = val.([]presence.Status)
	}
	return r0, args.Error(1)
}

func (m *PresenceTrackerMock) OnlineUsers(ctx context.Context, tenantID int64) ([]int64, error) {
	args := m.Called(ctx, tenantID)
	var r0 []int64
	if val := args.Get(0); val != nil {
		r0 = val.([]int64)
	}
	return r0, args.Error(1)
}

