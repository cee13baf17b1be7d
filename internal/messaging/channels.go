package messaging

import (
	"context"
	"errors"
	"strings"

	"channel-service/internal/activity"
	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

const maxChannelName = 100

// CreateChannel creates a group or direct channel with the caller as owner. A direct channel
// between the same two users is returned instead of duplicated; created reports which happened.
func (s *Service) CreateChannel(ctx context.Context, p models.Principal, in CreateChannelInput) (models.Channel, bool, error) {
	ctx, span := s.startSpan(ctx, "CreateChannel", p)
	channel, created, err := s.createChannel(ctx, p, in)
	endSpan(span, err)
	return channel, created, err
}

func (s *Service) createChannel(ctx context.Context, p models.Principal, in CreateChannelInput) (models.Channel, bool, error) {
	others := without(uniqueIDs(in.ParticipantIDs), p.UserID)
	if len(others) == 0 {
		return models.Channel{}, false, apperrors.BadRequest("at least one other participant is required")
	}
	kind := in.Kind
	if kind == "" {
		kind = models.ChannelKindGroup
	}
	name := strings.TrimSpace(in.Name)

	switch kind {
	case models.ChannelKindDirect:
		if len(others) != 1 {
			return models.Channel{}, false, apperrors.BadRequest("a direct channel has exactly two participants")
		}
		existing, err := s.channels.FindDirectChannel(ctx, p.TenantID, p.UserID, others[0])
		if err == nil {
			if _, err := s.channels.AddParticipants(ctx, existing.ID, p.TenantID, []int64{p.UserID}); err != nil {
				return models.Channel{}, false, apperrors.Internal("failed to rejoin direct channel", err)
			}
			s.members.Forget(ctx, existing.ID, p.UserID)
			s.router.JoinChannel(existing.ID, p.UserID)
			return existing, false, nil
		}
		if !errors.Is(err, repositories.ErrChannelNotFound) {
			return models.Channel{}, false, apperrors.Internal("failed to look up direct channel", err)
		}
		name = ""
		in.IsPrivate = true
	case models.ChannelKindGroup:
		if name == "" {
			return models.Channel{}, false, apperrors.BadRequest("name is required")
		}
	default:
		return models.Channel{}, false, apperrors.BadRequest("unsupported channel kind")
	}
	if len([]rune(name)) > maxChannelName {
		return models.Channel{}, false, apperrors.BadRequest("name is too long")
	}

	participants := []models.Participant{{UserID: p.UserID, TenantID: p.TenantID, Role: models.RoleOwner, IsActive: true}}
	for _, id := range others {
		participants = append(participants, models.Participant{UserID: id, TenantID: p.TenantID, Role: models.RoleMember, IsActive: true})
	}
	channel, err := s.channels.CreateChannel(ctx, models.Channel{
		TenantID:    p.TenantID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Kind:        kind,
		IsPrivate:   in.IsPrivate,
		CreatedBy:   p.UserID,
	}, participants)
	if err != nil {
		return models.Channel{}, false, apperrors.Internal("failed to create channel", err)
	}

	all := append([]int64{p.UserID}, others...)
	s.router.JoinChannel(channel.ID, all...)
	s.invalidate(ctx, channelListKeys(p.TenantID, all))
	s.invite(ctx, p, channel, others)
	s.record(ctx, activity.ChannelEntry(p, channel.ID, activity.ActionChannelCreated, "created the channel", models.JSONMap{
		"kind":         kind,
		"participants": all,
	}))
	return channel, true, nil
}

// invite pushes member_invited to each new member and stores a notification for it.
func (s *Service) invite(ctx context.Context, p models.Principal, channel models.Channel, userIDs []int64) {
	inviter := s.displayName(ctx, p)
	for _, id := range userIDs {
		s.broadcast.ToUser(ctx, id, models.NewEvent(models.EventMemberInvited, channel))
	}
	s.detach(ctx, "notify.invite", func(ctx context.Context) error {
		var errs []error
		for _, id := range userIDs {
			errs = append(errs, s.notifier.Notify(ctx, models.Notification{
				TenantID:    p.TenantID,
				RecipientID: id,
				EventType:   models.NotificationInvited,
				Priority:    models.PriorityNormal,
				Payload: models.JSONMap{
					"channel_id":   channel.ID,
					"channel_name": channel.Name,
					"inviter_id":   p.UserID,
					"inviter_name": inviter,
				},
			}))
		}
		return errors.Join(errs...)
	})
}

// ListChannels returns the caller's active channels, most recent activity first.
func (s *Service) ListChannels(ctx context.Context, p models.Principal) ([]models.ChannelSummary, error) {
	channels, err := cache.Fetch(ctx, s.cache, cache.ChannelListKey(p.TenantID, p.UserID), s.ttl.ChannelListTTL, func(ctx context.Context) ([]models.ChannelSummary, error) {
		return s.channels.ListChannelsForUser(ctx, p.TenantID, p.UserID)
	})
	if err != nil {
		return nil, apperrors.Internal("failed to list channels", err)
	}
	return channels, nil
}

func (s *Service) GetChannel(ctx context.Context, p models.Principal, channelID int64) (ChannelDetails, error) {
	channel, part, err := s.channelFor(ctx, p, channelID)
	if err != nil {
		return ChannelDetails{}, err
	}
	return ChannelDetails{Channel: channel, Participant: part}, nil
}

// SearchChannels matches channel names among the caller's channels.
func (s *Service) SearchChannels(ctx context.Context, p models.Principal, query string, limit int) ([]models.Channel, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.BadRequest("query is required")
	}
	channels, err := s.channels.SearchChannels(ctx, p.TenantID, p.UserID, query, clampLimit(limit))
	if err != nil {
		return nil, apperrors.Internal("failed to search channels", err)
	}
	return channels, nil
}

// ChannelIDsFor lists the channels a connection should be subscribed to.
func (s *Service) ChannelIDsFor(ctx context.Context, p models.Principal) ([]int64, error) {
	ids, err := s.channels.ChannelIDsForUser(ctx, p.TenantID, p.UserID)
	if err != nil {
		return nil, apperrors.Internal("failed to load channels", err)
	}
	return ids, nil
}

// UpdateChannel changes name, description or privacy. Admins and the owner only.
func (s *Service) UpdateChannel(ctx context.Context, p models.Principal, channelID int64, update models.ChannelUpdate) (models.Channel, error) {
	ctx, span := s.startSpan(ctx, "UpdateChannel", p)
	channel, err := s.updateChannel(ctx, p, channelID, update)
	endSpan(span, err)
	return channel, err
}

func (s *Service) updateChannel(ctx context.Context, p models.Principal, channelID int64, update models.ChannelUpdate) (models.Channel, error) {
	if update.Empty() {
		return models.Channel{}, apperrors.BadRequest("nothing to update")
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Channel{}, apperrors.BadRequest("name cannot be empty")
		}
		if len([]rune(name)) > maxChannelName {
			return models.Channel{}, apperrors.BadRequest("name is too long")
		}
		update.Name = &name
	}
	channel, part, err := s.channelFor(ctx, p, channelID)
	if err != nil {
		return models.Channel{}, err
	}
	if !part.CanModerate() {
		return models.Channel{}, apperrors.Forbidden("only admins can update the channel")
	}
	if channel.Kind == models.ChannelKindDirect {
		return models.Channel{}, apperrors.BadRequest("direct channels cannot be updated")
	}
	if channel.IsArchived {
		return models.Channel{}, apperrors.BadRequest("channel is archived")
	}
	updated, err := s.channels.UpdateChannel(ctx, channelID, update)
	if err != nil {
		return models.Channel{}, storeErr(err, "channel not found")
	}

	s.broadcast.ToChannel(ctx, channelID, models.NewEvent(models.EventChannelUpdated, updated), p.UserID)
	if members, err := s.members.ActiveMemberIDs(ctx, channelID); err == nil {
		s.invalidate(ctx, channelListKeys(p.TenantID, members))
	}
	s.record(ctx, activity.ChannelEntry(p, channelID, activity.ActionChannelUpdated, "updated the channel", nil))
	return updated, nil
}

// ArchiveChannel hides a channel from new activity. Admins and the owner only.
func (s *Service) ArchiveChannel(ctx context.Context, p models.Principal, channelID int64) error {
	ctx, span := s.startSpan(ctx, "ArchiveChannel", p)
	err := s.archive(ctx, p, channelID, false)
	endSpan(span, err)
	return err
}

// DeleteChannel archives the channel on the owner's behalf. Rows are kept.
func (s *Service) DeleteChannel(ctx context.Context, p models.Principal, channelID int64) error {
	ctx, span := s.startSpan(ctx, "DeleteChannel", p)
	err := s.archive(ctx, p, channelID, true)
	endSpan(span, err)
	return err
}

func (s *Service) archive(ctx context.Context, p models.Principal, channelID int64, ownerOnly bool) error {
	channel, part, err := s.channelFor(ctx, p, channelID)
	if err != nil {
		return err
	}
	if ownerOnly && part.Role != models.RoleOwner {
		return apperrors.Forbidden("only the owner can delete the channel")
	}
	if !part.CanModerate() {
		return apperrors.Forbidden("only admins can archive the channel")
	}
	if channel.IsArchived {
		return nil
	}
	if err := s.channels.ArchiveChannel(ctx, channelID); err != nil {
		return storeErr(err, "channel not found")
	}
	channel.IsArchived = true

	s.broadcast.ToChannel(ctx, channelID, models.NewEvent(models.EventChannelArchive, channel), p.UserID)
	if members, err := s.members.ActiveMemberIDs(ctx, channelID); err == nil {
		s.invalidate(ctx, channelListKeys(p.TenantID, members))
	}
	s.record(ctx, activity.ChannelEntry(p, channelID, activity.ActionChannelArchived, "archived the channel", nil))
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
