package messaging

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"channel-service/internal/activity"
	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/models"
)

// Send persists a message (or thread reply when ParentMessageID is set), broadcasts it to the
// channel and schedules notifications, activity and cache invalidation.
func (s *Service) Send(ctx context.Context, p models.Principal, in SendInput) (models.MessageView, error) {
	ctx, span := s.startSpan(ctx, "Send", p)
	view, err := s.send(ctx, p, in, nil)
	endSpan(span, err)
	return view, err
}

// ThreadReply is Send with a parent message. A zero ChannelID is taken from the parent.
func (s *Service) ThreadReply(ctx context.Context, p models.Principal, parentID int64, in SendInput) (models.MessageView, error) {
	in.ParentMessageID = &parentID
	if in.ChannelID == 0 {
		parent, err := s.messages.GetMessage(ctx, parentID)
		if err != nil {
			return models.MessageView{}, storeErr(err, "parent message not found")
		}
		in.ChannelID = parent.ChannelID
	}
	return s.Send(ctx, p, in)
}

func (s *Service) send(ctx context.Context, p models.Principal, in SendInput, forwardedFrom *int64) (models.MessageView, error) {
	content, err := validateContent(in.Content, len(in.Attachments) > 0)
	if err != nil {
		return models.MessageView{}, err
	}
	msgType := in.Type
	switch msgType {
	case "":
		msgType = models.MessageTypeText
		if content == "" {
			msgType = models.MessageTypeFile
		}
	case models.MessageTypeText, models.MessageTypeFile:
	default:
		return models.MessageView{}, apperrors.BadRequest("unsupported message type")
	}

	channel, _, err := s.channelFor(ctx, p, in.ChannelID)
	if err != nil {
		return models.MessageView{}, err
	}
	if channel.IsArchived {
		return models.MessageView{}, apperrors.BadRequest("channel is archived")
	}

	var parent *models.Message
	if in.ParentMessageID != nil {
		found, err := s.messages.GetMessage(ctx, *in.ParentMessageID)
		if err != nil {
			return models.MessageView{}, storeErr(err, "parent message not found")
		}
		if found.ChannelID != channel.ID || found.IsDeleted {
			return models.MessageView{}, apperrors.NotFound("parent message not found")
		}
		parent = &found
	}

	members, err := s.members.ActiveMemberIDs(ctx, channel.ID)
	if err != nil {
		return models.MessageView{}, apperrors.Internal("failed to load channel members", err)
	}
	recipients := without(members, p.UserID)

	msg := models.Message{
		ChannelID:       channel.ID,
		TenantID:        p.TenantID,
		SenderID:        p.UserID,
		Type:            msgType,
		Content:         content,
		Mentions:        models.NewRecipientSet(without(in.Mentions, p.UserID)...),
		HasAttachments:  len(in.Attachments) > 0,
		ForwardedFromID: forwardedFrom,
		DeliveredTo:     models.NewRecipientSet(recipients...),
		ReadBy:          models.NewRecipientSet(),
	}
	msg.HasMentions = msg.Mentions.Len() > 0
	if parent != nil {
		root := parent.ThreadRoot()
		msg.ParentMessageID = &parent.ID
		msg.ThreadID = &root
	}
	attachments := make([]models.Attachment, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		a.ChannelID = channel.ID
		a.TenantID = p.TenantID
		attachments = append(attachments, a)
	}

	created, stored, err := s.messages.CreateMessage(ctx, msg, attachments)
	if err != nil {
		return models.MessageView{}, storeErr(err, "channel not found")
	}
	view := models.MessageView{
		Message:     created,
		SenderName:  s.displayName(ctx, p),
		Attachments: stored,
	}

	event := models.EventNewMessage
	if created.IsThreadReply() {
		event = models.EventThreadReply
	}
	s.broadcast.ToChannel(ctx, channel.ID, models.NewEvent(event, view), p.UserID)

	s.invalidate(ctx,
		append(channelListKeys(p.TenantID, members), unreadKeys(p.TenantID, recipients)...),
		cache.MessagePagesPattern(channel.ID),
	)
	s.detach(ctx, "notify.message", func(ctx context.Context) error {
		return s.notifyRecipients(ctx, view, recipients)
	})
	action, description := activity.ActionMessageSent, "sent a message"
	switch {
	case created.IsThreadReply():
		action, description = activity.ActionThreadReply, "replied in a thread"
	case forwardedFrom != nil:
		action, description = activity.ActionMessageForwarded, "forwarded a message"
	}
	s.record(ctx, activity.MessageEntry(p, created.ID, action, description, models.JSONMap{
		"channel_id": channel.ID,
	}))
	return view, nil
}

// notifyRecipients creates at most one notification per recipient. A mention wins over a thread
// reply, which wins over a plain new message. Thread replies only reach earlier thread participants
// and muted members get no new_message notifications.
func (s *Service) notifyRecipients(ctx context.Context, view models.MessageView, recipients []int64) error {
	msg := view.Message
	var threadParticipants models.RecipientSet
	if msg.IsThreadReply() {
		ids, err := s.messages.ThreadParticipantIDs(ctx, msg.ThreadRoot())
		if err != nil {
			return err
		}
		threadParticipants = models.NewRecipientSet(ids...)
	}
	muted := models.NewRecipientSet()
	if !msg.IsThreadReply() {
		participants, err := s.channels.ListParticipants(ctx, msg.ChannelID)
		if err != nil {
			return err
		}
		for _, part := range participants {
			if part.IsActive && part.IsMuted {
				muted.Add(part.UserID)
			}
		}
	}

	payload := models.JSONMap{
		"channel_id":  msg.ChannelID,
		"message_id":  msg.ID,
		"sender_id":   msg.SenderID,
		"sender_name": view.SenderName,
		"preview":     preview(msg.Content),
	}
	var errs []error
	for _, recipient := range recipients {
		eventType, priority := "", ""
		switch {
		case msg.Mentions.Contains(recipient):
			eventType, priority = models.NotificationMention, models.PriorityHigh
		case msg.IsThreadReply() && threadParticipants.Contains(recipient):
			eventType, priority = models.NotificationThreadReply, models.PriorityNormal
		case !msg.IsThreadReply() && !muted.Contains(recipient):
			eventType, priority = models.NotificationNewMessage, models.PriorityLow
		default:
			continue
		}
		err := s.notifier.Notify(ctx, models.Notification{
			TenantID:    msg.TenantID,
			RecipientID: recipient,
			EventType:   eventType,
			Payload:     payload,
			Priority:    priority,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forward copies a message into each target channel the caller belongs to. Failures are reported
// per target; only a failure to read the source aborts the whole call.
func (s *Service) Forward(ctx context.Context, p models.Principal, messageID int64, targetIDs []int64) ([]ForwardResult, error) {
	ctx, span := s.startSpan(ctx, "Forward", p)
	results, err := s.forward(ctx, p, messageID, targetIDs)
	endSpan(span, err)
	return results, err
}

func (s *Service) forward(ctx context.Context, p models.Principal, messageID int64, targetIDs []int64) ([]ForwardResult, error) {
	if len(targetIDs) == 0 {
		return nil, apperrors.BadRequest("at least one target channel is required")
	}
	source, _, err := s.messageFor(ctx, p, messageID)
	if err != nil {
		return nil, err
	}
	var files []models.Attachment
	if source.HasAttachments {
		files, err = s.messages.ListAttachments(ctx, []int64{source.ID})
		if err != nil {
			return nil, apperrors.Internal("failed to load attachments", err)
		}
		for i := range files {
			files[i].ID = 0
			files[i].MessageID = 0
		}
	}

	seen := make(map[int64]struct{}, len(targetIDs))
	results := make([]ForwardResult, 0, len(targetIDs))
	for _, target := range targetIDs {
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		view, err := s.send(ctx, p, SendInput{
			ChannelID:   target,
			Content:     source.Content,
			Type:        source.Type,
			Attachments: files,
		}, &source.ID)
		if err != nil {
			s.log.Debug("forward target skipped", zap.Int64("channel_id", target), zap.Error(err))
			results = append(results, ForwardResult{ChannelID: target, Error: apperrors.MessageOf(err)})
			continue
		}
		results = append(results, ForwardResult{ChannelID: target, Success: true, MessageID: view.ID})
	}
	return results, nil
}
