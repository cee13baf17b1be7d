package messaging

import (
	"context"
	"time"

	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/models"
)

// MarkRead adds the caller to a message's read set. The sender is told privately, once.
func (s *Service) MarkRead(ctx context.Context, p models.Principal, messageID int64) (ReadResult, error) {
	ctx, span := s.startSpan(ctx, "MarkRead", p)
	result, err := s.markRead(ctx, p, messageID)
	endSpan(span, err)
	return result, err
}

func (s *Service) markRead(ctx context.Context, p models.Principal, messageID int64) (ReadResult, error) {
	if _, _, err := s.messageFor(ctx, p, messageID); err != nil {
		return ReadResult{}, err
	}
	msg, changed, err := s.messages.MarkRead(ctx, messageID, p.UserID)
	if err != nil {
		return ReadResult{}, storeErr(err, "message not found")
	}
	result := ReadResult{MessageID: messageID, Changed: changed}
	if !changed {
		return result, nil
	}
	_ = s.cache.Delete(ctx, cache.UnreadKey(p.TenantID, p.UserID))
	if msg.SenderID != p.UserID {
		s.broadcast.ToUser(ctx, msg.SenderID, models.NewEvent(models.EventMessageRead, MessageReadEvent{
			ChannelID:  msg.ChannelID,
			MessageID:  msg.ID,
			MessageIDs: []int64{msg.ID},
			ReaderID:   p.UserID,
			ReaderName: s.displayName(ctx, p),
			ReadAt:     time.Now().UTC(),
		}))
	}
	return result, nil
}

// MarkChannelRead marks every unread message in the channel up to upToID (0 for all). Senders
// receive one batched read event each.
func (s *Service) MarkChannelRead(ctx context.Context, p models.Principal, channelID, upToID int64) (ChannelReadResult, error) {
	ctx, span := s.startSpan(ctx, "MarkChannelRead", p)
	result, err := s.markChannelRead(ctx, p, channelID, upToID)
	endSpan(span, err)
	return result, err
}

func (s *Service) markChannelRead(ctx context.Context, p models.Principal, channelID, upToID int64) (ChannelReadResult, error) {
	if _, err := s.member(ctx, p, channelID); err != nil {
		return ChannelReadResult{}, err
	}
	changed, err := s.messages.MarkChannelRead(ctx, channelID, p.UserID, upToID)
	if err != nil {
		return ChannelReadResult{}, storeErr(err, "channel not found")
	}
	result := ChannelReadResult{ChannelID: channelID, Marked: make([]int64, 0, len(changed))}
	if len(changed) == 0 {
		return result, nil
	}
	_ = s.cache.Delete(ctx, cache.UnreadKey(p.TenantID, p.UserID))

	bySender := map[int64][]int64{}
	var order []int64
	for _, m := range changed {
		result.Marked = append(result.Marked, m.ID)
		if m.SenderID == p.UserID {
			continue
		}
		if _, ok := bySender[m.SenderID]; !ok {
			order = append(order, m.SenderID)
		}
		bySender[m.SenderID] = append(bySender[m.SenderID], m.ID)
	}
	name := s.displayName(ctx, p)
	now := time.Now().UTC()
	for _, sender := range order {
		ids := bySender[sender]
		s.broadcast.ToUser(ctx, sender, models.NewEvent(models.EventMessageRead, MessageReadEvent{
			ChannelID:  channelID,
			MessageID:  ids[len(ids)-1],
			MessageIDs: ids,
			ReaderID:   p.UserID,
			ReaderName: name,
			ReadAt:     now,
		}))
	}
	return result, nil
}

// UnreadCounts returns per-channel unread counts for the caller.
func (s *Service) UnreadCounts(ctx context.Context, p models.Principal) (UnreadSummary, error) {
	counts, err := cache.Fetch(ctx, s.cache, cache.UnreadKey(p.TenantID, p.UserID), s.ttl.UnreadTTL, func(ctx context.Context) (map[int64]int, error) {
		return s.messages.UnreadCounts(ctx, p.TenantID, p.UserID)
	})
	if err != nil {
		return UnreadSummary{}, apperrors.Internal("failed to count unread messages", err)
	}
	summary := UnreadSummary{Channels: counts}
	if summary.Channels == nil {
		summary.Channels = map[int64]int{}
	}
	for _, n := range summary.Channels {
		summary.Total += n
	}
	return summary, nil
}

// Typing relays a typing indicator to the rest of the channel. Nothing is stored.
func (s *Service) Typing(ctx context.Context, p models.Principal, channelID int64, typing bool) error {
	if _, err := s.member(ctx, p, channelID); err != nil {
		return err
	}
	s.broadcast.ToChannel(ctx, channelID, models.NewEvent(models.EventUserTyping, TypingEvent{
		ChannelID:   channelID,
		UserID:      p.UserID,
		DisplayName: s.displayName(ctx, p),
		IsTyping:    typing,
	}), p.UserID)
	return nil
}
