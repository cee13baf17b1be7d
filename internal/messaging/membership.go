package messaging

import (
	"context"
	"strings"

	"channel-service/internal/activity"
	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/models"
)

// AddMembers adds users to a group channel, reactivating anyone who left. It returns the ids that
// were actually added.
func (s *Service) AddMembers(ctx context.Context, p models.Principal, channelID int64, userIDs []int64) ([]int64, error) {
	ctx, span := s.startSpan(ctx, "AddMembers", p)
	added, err := s.addMembers(ctx, p, channelID, userIDs)
	endSpan(span, err)
	return added, err
}

func (s *Service) addMembers(ctx context.Context, p models.Principal, channelID int64, userIDs []int64) ([]int64, error) {
	userIDs = uniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return nil, apperrors.BadRequest("at least one user is required")
	}
	channel, part, err := s.channelFor(ctx, p, channelID)
	if err != nil {
		return nil, err
	}
	if !part.CanModerate() {
		return nil, apperrors.Forbidden("only admins can add members")
	}
	if channel.Kind == models.ChannelKindDirect {
		return nil, apperrors.BadRequest("cannot add members to a direct channel")
	}
	if channel.IsArchived {
		return nil, apperrors.BadRequest("channel is archived")
	}
	added, err := s.channels.AddParticipants(ctx, channelID, p.TenantID, userIDs)
	if err != nil {
		return nil, storeErr(err, "channel not found")
	}
	if len(added) == 0 {
		return added, nil
	}

	s.members.Forget(ctx, channelID, added...)
	s.router.JoinChannel(channelID, added...)
	s.broadcast.ToChannel(ctx, channelID, models.NewEvent(models.EventMembersAdded, MembershipEvent{
		ChannelID: channelID,
		UserIDs:   added,
		ActorID:   p.UserID,
	}), p.UserID)
	s.invite(ctx, p, channel, added)
	s.invalidate(ctx, append(channelListKeys(p.TenantID, added), unreadKeys(p.TenantID, added)...))
	s.record(ctx, activity.ChannelEntry(p, channelID, activity.ActionMembersAdded, "added members", models.JSONMap{
		"user_ids": added,
	}))
	return added, nil
}

// RemoveMember deactivates another participant. The owner can never be removed.
func (s *Service) RemoveMember(ctx context.Context, p models.Principal, channelID, userID int64) error {
	ctx, span := s.startSpan(ctx, "RemoveMember", p)
	err := s.removeMember(ctx, p, channelID, userID)
	endSpan(span, err)
	return err
}

func (s *Service) removeMember(ctx context.Context, p models.Principal, channelID, userID int64) error {
	part, err := s.member(ctx, p, channelID)
	if err != nil {
		return err
	}
	if userID == p.UserID {
		// The owner only leaves through LeaveChannel.
		if part.Role == models.RoleOwner {
			return apperrors.Forbidden("the channel owner cannot be removed")
		}
		return s.leave(ctx, p, channelID, part)
	}
	target, err := s.channels.GetParticipant(ctx, channelID, userID)
	if err != nil {
		return storeErr(err, "member not found")
	}
	if target.Role == models.RoleOwner {
		return apperrors.Forbidden("the channel owner cannot be removed")
	}
	if !target.IsActive {
		return apperrors.NotFound("member not found")
	}
	if !part.CanModerate() {
		return apperrors.Forbidden("only admins can remove members")
	}
	if target.Role == models.RoleAdmin && part.Role != models.RoleOwner {
		return apperrors.Forbidden("only the owner can remove an admin")
	}
	if _, err := s.channels.DeactivateParticipant(ctx, channelID, userID); err != nil {
		return storeErr(err, "member not found")
	}

	s.members.Forget(ctx, channelID, userID)
	event := models.NewEvent(models.EventMemberRemoved, MembershipEvent{
		ChannelID: channelID,
		UserIDs:   []int64{userID},
		ActorID:   p.UserID,
	})
	s.broadcast.ToChannel(ctx, channelID, event, p.UserID)
	s.broadcast.ToUser(ctx, userID, event)
	s.router.LeaveChannel(channelID, userID)
	s.invalidate(ctx, []string{cache.ChannelListKey(p.TenantID, userID), cache.UnreadKey(p.TenantID, userID)})
	s.record(ctx, activity.ChannelEntry(p, channelID, activity.ActionMemberRemoved, "removed a member", models.JSONMap{
		"user_id": userID,
	}))
	return nil
}

// LeaveChannel deactivates the caller. The owner must hand over ownership first unless nobody
// else remains; a channel left empty is archived.
func (s *Service) LeaveChannel(ctx context.Context, p models.Principal, channelID int64) error {
	ctx, span := s.startSpan(ctx, "LeaveChannel", p)
	part, err := s.member(ctx, p, channelID)
	if err == nil {
		err = s.leave(ctx, p, channelID, part)
	}
	endSpan(span, err)
	return err
}

func (s *Service) leave(ctx context.Context, p models.Principal, channelID int64, part models.Participant) error {
	members, err := s.channels.ActiveMemberIDs(ctx, channelID)
	if err != nil {
		return apperrors.Internal("failed to load channel members", err)
	}
	remaining := without(members, p.UserID)
	if part.Role == models.RoleOwner && len(remaining) > 0 {
		return apperrors.BadRequest("transfer ownership before leaving the channel")
	}
	if _, err := s.channels.DeactivateParticipant(ctx, channelID, p.UserID); err != nil {
		return storeErr(err, "channel not found")
	}
	s.members.Forget(ctx, channelID, p.UserID)
	s.router.LeaveChannel(channelID, p.UserID)

	if len(remaining) == 0 {
		if err := s.channels.ArchiveChannel(ctx, channelID); err != nil {
			return storeErr(err, "channel not found")
		}
	} else {
		s.broadcast.ToChannel(ctx, channelID, models.NewEvent(models.EventMemberLeft, MembershipEvent{
			ChannelID: channelID,
			UserIDs:   []int64{p.UserID},
			ActorID:   p.UserID,
		}), p.UserID)
	}
	s.invalidate(ctx, []string{cache.ChannelListKey(p.TenantID, p.UserID), cache.UnreadKey(p.TenantID, p.UserID)})
	s.record(ctx, activity.ChannelEntry(p, channelID, activity.ActionMemberLeft, "left the channel", nil))
	return nil
}

// ChangeRole sets another member's role. Only the owner may do it; granting owner transfers
// ownership and demotes the caller to admin.
func (s *Service) ChangeRole(ctx context.Context, p models.Principal, channelID, userID int64, role string) error {
	ctx, span := s.startSpan(ctx, "ChangeRole", p)
	err := s.changeRole(ctx, p, channelID, userID, role)
	endSpan(span, err)
	return err
}

func (s *Service) changeRole(ctx context.Context, p models.Principal, channelID, userID int64, role string) error {
	if !models.ValidRole(role) {
		return apperrors.BadRequest("invalid role")
	}
	part, err := s.member(ctx, p, channelID)
	if err != nil {
		return err
	}
	if part.Role != models.RoleOwner {
		return apperrors.Forbidden("only the owner can change roles")
	}
	if userID == p.UserID {
		return apperrors.BadRequest("cannot change your own role")
	}
	target, err := s.channels.GetParticipant(ctx, channelID, userID)
	if err != nil {
		return storeErr(err, "member not found")
	}
	if !target.IsActive {
		return apperrors.NotFound("member not found")
	}
	if target.Role == role {
		return nil
	}

	changed := []int64{userID}
	if role == models.RoleOwner {
		err = s.channels.TransferOwnership(ctx, channelID, p.UserID, userID)
		changed = append(changed, p.UserID)
	} else {
		err = s.channels.ChangeRole(ctx, channelID, userID, role)
	}
	if err != nil {
		return storeErr(err, "member not found")
	}
	s.members.Forget(ctx, channelID, changed...)

	s.broadcast.ToChannel(ctx, channelID, models.NewEvent(models.EventRoleChanged, MembershipEvent{
		ChannelID: channelID,
		UserIDs:   []int64{userID},
		ActorID:   p.UserID,
		Role:      role,
	}), 0)
	s.invalidate(ctx, channelListKeys(p.TenantID, changed))
	s.record(ctx, activity.ChannelEntry(p, channelID, activity.ActionRoleChanged, "changed a member role", models.JSONMap{
		"user_id": userID,
		"role":    role,
	}))
	return nil
}

// UpdatePreferences toggles the caller's mute and pin flags on a channel.
func (s *Service) UpdatePreferences(ctx context.Context, p models.Principal, channelID int64, prefs models.ParticipantPreferences) (models.Participant, error) {
	if prefs.IsMuted == nil && prefs.IsPinned == nil {
		return models.Participant{}, apperrors.BadRequest("nothing to update")
	}
	if _, err := s.member(ctx, p, channelID); err != nil {
		return models.Participant{}, err
	}
	updated, err := s.channels.UpdatePreferences(ctx, channelID, p.UserID, prefs)
	if err != nil {
		return models.Participant{}, storeErr(err, "member not found")
	}
	s.members.Forget(ctx, channelID, p.UserID)
	_ = s.cache.Delete(ctx, cache.ChannelListKey(p.TenantID, p.UserID))
	return updated, nil
}

// ListMembers returns active participants with their profiles. A non-empty query filters by
// username or display name.
func (s *Service) ListMembers(ctx context.Context, p models.Principal, channelID int64, query string) ([]MemberView, error) {
	if _, err := s.member(ctx, p, channelID); err != nil {
		return nil, err
	}
	participants, err := s.channels.ListParticipants(ctx, channelID)
	if err != nil {
		return nil, apperrors.Internal("failed to list members", err)
	}
	ids := make([]int64, 0, len(participants))
	for _, part := range participants {
		if part.IsActive {
			ids = append(ids, part.UserID)
		}
	}
	profiles := s.directory.Profiles(ctx, p.TenantID, ids)

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]MemberView, 0, len(ids))
	for _, part := range participants {
		if !part.IsActive {
			continue
		}
		profile := profiles[part.UserID]
		if query != "" &&
			!strings.Contains(strings.ToLower(profile.Username), query) &&
			!strings.Contains(strings.ToLower(profile.DisplayName), query) {
			continue
		}
		out = append(out, MemberView{
			Participant: part,
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
			AvatarURL:   profile.AvatarURL,
		})
	}
	return out, nil
}
