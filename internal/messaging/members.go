package messaging

import (
	"context"
	"errors"
	"time"

	"channel-service/internal/cache"
	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

// Members answers membership questions through the cache, falling back to the store. It is shared
// by the service and the connection registry.
type Members struct {
	channels      repositories.ChannelRepository
	cache         cache.Cache
	membershipTTL time.Duration
	// redeleteAfter is how long Forget waits before deleting the same keys again.
	redeleteAfter time.Duration
}

const defaultRedeleteAfter = time.Second

func NewMembers(channels repositories.ChannelRepository, c cache.Cache, membershipTTL time.Duration) *Members {
	return &Members{channels: channels, cache: c, membershipTTL: membershipTTL, redeleteAfter: defaultRedeleteAfter}
}

// ActiveMemberIDs returns the channel's active member ids.
func (m *Members) ActiveMemberIDs(ctx context.Context, channelID int64) ([]int64, error) {
	return cache.Fetch(ctx, m.cache, cache.MembersKey(channelID), m.membershipTTL, func(ctx context.Context) ([]int64, error) {
		return m.channels.ActiveMemberIDs(ctx, channelID)
	})
}

// ActiveParticipant returns the caller's participant row if it is active. Only positive answers are
// cached; an inactive or missing row yields repositories.ErrParticipantNotFound.
func (m *Members) ActiveParticipant(ctx context.Context, channelID, userID int64) (models.Participant, error) {
	return cache.Fetch(ctx, m.cache, cache.MembershipKey(channelID, userID), m.membershipTTL, func(ctx context.Context) (models.Participant, error) {
		p, err := m.channels.GetParticipant(ctx, channelID, userID)
		if err != nil {
			return models.Participant{}, err
		}
		if !p.IsActive {
			return models.Participant{}, repositories.ErrParticipantNotFound
		}
		return p, nil
	})
}

// Forget drops the cached membership set of a channel and the cached rows of userIDs. It runs
// inline with membership changes so the next send sees the new member set. The keys are deleted
// a second time after redeleteAfter: a read that loaded the old row before the change may write
// it back after the first delete.
func (m *Members) Forget(ctx context.Context, channelID int64, userIDs ...int64) {
	keys := []string{cache.MembersKey(channelID)}
	for _, id := range userIDs {
		keys = append(keys, cache.MembershipKey(channelID, id))
	}
	_ = m.cache.Delete(ctx, keys...)
	if m.redeleteAfter <= 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	time.AfterFunc(m.redeleteAfter, func() {
		_ = m.cache.Delete(bg, keys...)
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrParticipantNotFound) ||
		errors.Is(err, repositories.ErrChannelNotFound) ||
		errors.Is(err, repositories.ErrMessageNotFound)
}
