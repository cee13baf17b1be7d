package messaging

import (
	"context"
	"strings"
	"unicode/utf8"

	"channel-service/internal/activity"
	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/models"
)

// Edit replaces the content of the caller's own message.
func (s *Service) Edit(ctx context.Context, p models.Principal, messageID int64, content string) (models.Message, error) {
	ctx, span := s.startSpan(ctx, "Edit", p)
	msg, err := s.edit(ctx, p, messageID, content)
	endSpan(span, err)
	return msg, err
}

func (s *Service) edit(ctx context.Context, p models.Principal, messageID int64, content string) (models.Message, error) {
	content, err := validateContent(content, false)
	if err != nil {
		return models.Message{}, err
	}
	msg, _, err := s.messageFor(ctx, p, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != p.UserID {
		return models.Message{}, apperrors.Forbidden("only the sender can edit a message")
	}
	updated, err := s.messages.UpdateContent(ctx, messageID, content)
	if err != nil {
		return models.Message{}, storeErr(err, "message not found")
	}

	s.broadcast.ToChannel(ctx, updated.ChannelID, models.NewEvent(models.EventMessageEdited, updated), p.UserID)
	s.invalidate(ctx, nil, cache.MessagePagesPattern(updated.ChannelID))
	s.record(ctx, activity.MessageEntry(p, updated.ID, activity.ActionMessageEdited, "edited a message", models.JSONMap{
		"channel_id": updated.ChannelID,
	}))
	return updated, nil
}

// Delete soft-deletes a message. The sender and channel moderators may delete.
func (s *Service) Delete(ctx context.Context, p models.Principal, messageID int64) error {
	ctx, span := s.startSpan(ctx, "Delete", p)
	err := s.delete(ctx, p, messageID)
	endSpan(span, err)
	return err
}

func (s *Service) delete(ctx context.Context, p models.Principal, messageID int64) error {
	msg, part, err := s.messageFor(ctx, p, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != p.UserID && !part.CanModerate() {
		return apperrors.Forbidden("only the sender or a channel admin can delete a message")
	}
	deleted, err := s.messages.SoftDelete(ctx, messageID, p.UserID)
	if err != nil {
		return storeErr(err, "message not found")
	}

	s.broadcast.ToChannel(ctx, deleted.ChannelID, models.NewEvent(models.EventMessageDeleted, MessageDeletedEvent{
		ChannelID: deleted.ChannelID,
		MessageID: deleted.ID,
		DeletedBy: p.UserID,
	}), p.UserID)
	s.invalidate(ctx, unreadKeys(p.TenantID, deleted.DeliveredTo.IDs()), cache.MessagePagesPattern(deleted.ChannelID))
	s.record(ctx, activity.MessageEntry(p, deleted.ID, activity.ActionMessageDeleted, "deleted a message", models.JSONMap{
		"channel_id": deleted.ChannelID,
		"sender_id":  deleted.SenderID,
	}))
	return nil
}

// Pin pins or unpins a message. Any active member may pin.
func (s *Service) Pin(ctx context.Context, p models.Principal, messageID int64, pinned bool) (models.Message, error) {
	ctx, span := s.startSpan(ctx, "Pin", p)
	msg, err := s.pin(ctx, p, messageID, pinned)
	endSpan(span, err)
	return msg, err
}

func (s *Service) pin(ctx context.Context, p models.Principal, messageID int64, pinned bool) (models.Message, error) {
	if _, _, err := s.messageFor(ctx, p, messageID); err != nil {
		return models.Message{}, err
	}
	updated, err := s.messages.SetPinned(ctx, messageID, pinned, p.UserID)
	if err != nil {
		return models.Message{}, storeErr(err, "message not found")
	}

	event, action, description := models.EventMessagePinned, activity.ActionMessagePinned, "pinned a message"
	if !pinned {
		event, action, description = models.EventMessageUnpin, activity.ActionMessageUnpinned, "unpinned a message"
	}
	s.broadcast.ToChannel(ctx, updated.ChannelID, models.NewEvent(event, updated), p.UserID)
	s.invalidate(ctx, nil, cache.MessagePagesPattern(updated.ChannelID))
	s.record(ctx, activity.MessageEntry(p, updated.ID, action, description, models.JSONMap{
		"channel_id": updated.ChannelID,
	}))
	return updated, nil
}

func validateEmoji(emoji string) (string, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return "", apperrors.BadRequest("emoji is required")
	}
	if utf8.RuneCountInString(emoji) > MaxEmojiLength {
		return "", apperrors.BadRequest("emoji is too long")
	}
	return emoji, nil
}

// AddReaction is idempotent per (message, user, emoji). A repeated reaction reports
// already_exists and has no side effects.
func (s *Service) AddReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (ReactionResult, error) {
	ctx, span := s.startSpan(ctx, "AddReaction", p)
	result, err := s.addReaction(ctx, p, messageID, emoji)
	endSpan(span, err)
	return result, err
}

func (s *Service) addReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (ReactionResult, error) {
	emoji, err := validateEmoji(emoji)
	if err != nil {
		return ReactionResult{}, err
	}
	msg, _, err := s.messageFor(ctx, p, messageID)
	if err != nil {
		return ReactionResult{}, err
	}
	added, err := s.reactions.AddReaction(ctx, messageID, p.UserID, emoji)
	if err != nil {
		return ReactionResult{}, storeErr(err, "message not found")
	}
	result := ReactionResult{Action: ReactionAlreadyExists, MessageID: messageID, Emoji: emoji}
	if !added {
		return result, nil
	}
	result.Action = ReactionAdded

	s.broadcast.ToChannel(ctx, msg.ChannelID, models.NewEvent(models.EventReactionAdded, ReactionEvent{
		ChannelID: msg.ChannelID,
		MessageID: messageID,
		UserID:    p.UserID,
		Emoji:     emoji,
	}), p.UserID)
	s.invalidate(ctx, nil, cache.MessagePagesPattern(msg.ChannelID))
	if msg.SenderID != p.UserID {
		notification := models.Notification{
			TenantID:    msg.TenantID,
			RecipientID: msg.SenderID,
			EventType:   models.NotificationReaction,
			Priority:    models.PriorityLow,
			Payload: models.JSONMap{
				"channel_id":   msg.ChannelID,
				"message_id":   messageID,
				"emoji":        emoji,
				"reactor_id":   p.UserID,
				"reactor_name": s.displayName(ctx, p),
			},
		}
		s.detach(ctx, "notify.reaction", func(ctx context.Context) error {
			return s.notifier.Notify(ctx, notification)
		})
	}
	s.record(ctx, activity.MessageEntry(p, messageID, activity.ActionReactionAdded, "reacted to a message", models.JSONMap{
		"channel_id": msg.ChannelID,
		"emoji":      emoji,
	}))
	return result, nil
}

// RemoveReaction reports whether a reaction was removed.
func (s *Service) RemoveReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (bool, error) {
	ctx, span := s.startSpan(ctx, "RemoveReaction", p)
	removed, err := s.removeReaction(ctx, p, messageID, emoji)
	endSpan(span, err)
	return removed, err
}

func (s *Service) removeReaction(ctx context.Context, p models.Principal, messageID int64, emoji string) (bool, error) {
	emoji, err := validateEmoji(emoji)
	if err != nil {
		return false, err
	}
	msg, _, err := s.messageFor(ctx, p, messageID)
	if err != nil {
		return false, err
	}
	removed, err := s.reactions.RemoveReaction(ctx, messageID, p.UserID, emoji)
	if err != nil {
		return false, storeErr(err, "message not found")
	}
	if !removed {
		return false, nil
	}
	s.broadcast.ToChannel(ctx, msg.ChannelID, models.NewEvent(models.EventReactionRemove, ReactionEvent{
		ChannelID: msg.ChannelID,
		MessageID: messageID,
		UserID:    p.UserID,
		Emoji:     emoji,
	}), p.UserID)
	s.invalidate(ctx, nil, cache.MessagePagesPattern(msg.ChannelID))
	s.record(ctx, activity.MessageEntry(p, messageID, activity.ActionReactionRemoved, "removed a reaction", models.JSONMap{
		"channel_id": msg.ChannelID,
		"emoji":      emoji,
	}))
	return true, nil
}
