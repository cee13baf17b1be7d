package messaging

import (
	"context"
	"strings"

	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/models"
)

// ListMessages pages top-level messages newest first. Only the first page is cached.
func (s *Service) ListMessages(ctx context.Context, p models.Principal, channelID, beforeID int64, limit int) ([]models.MessageView, error) {
	if _, err := s.member(ctx, p, channelID); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	load := func(ctx context.Context) ([]models.MessageView, error) {
		msgs, err := s.messages.ListMessages(ctx, channelID, beforeID, limit)
		if err != nil {
			return nil, apperrors.Internal("failed to list messages", err)
		}
		return s.enrich(ctx, p.TenantID, msgs)
	}
	if beforeID > 0 {
		return load(ctx)
	}
	return cache.Fetch(ctx, s.cache, cache.MessagePageKey(channelID, 0, limit), s.ttl.MessagePageTTL, load)
}

func (s *Service) GetMessage(ctx context.Context, p models.Principal, messageID int64) (models.MessageView, error) {
	msg, _, err := s.messageFor(ctx, p, messageID)
	if err != nil {
		return models.MessageView{}, err
	}
	views, err := s.enrich(ctx, p.TenantID, []models.Message{msg})
	if err != nil {
		return models.MessageView{}, err
	}
	return views[0], nil
}

// ListThread returns a thread root and its replies, oldest first. Any message of the thread may
// be used to address it.
func (s *Service) ListThread(ctx context.Context, p models.Principal, messageID int64) (ThreadView, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return ThreadView{}, storeErr(err, "message not found")
	}
	if _, err := s.member(ctx, p, msg.ChannelID); err != nil {
		return ThreadView{}, err
	}
	root := msg
	if msg.IsThreadReply() {
		if root, err = s.messages.GetMessage(ctx, msg.ThreadRoot()); err != nil {
			return ThreadView{}, storeErr(err, "message not found")
		}
	}
	replies, err := s.messages.ListThread(ctx, root.ID)
	if err != nil {
		return ThreadView{}, apperrors.Internal("failed to load thread", err)
	}
	views, err := s.enrich(ctx, p.TenantID, append([]models.Message{root}, replies...))
	if err != nil {
		return ThreadView{}, err
	}
	return ThreadView{Root: views[0], Replies: views[1:]}, nil
}

// SearchMessages matches content across the caller's channels, or one channel when channelID is set.
func (s *Service) SearchMessages(ctx context.Context, p models.Principal, channelID int64, query string, limit int) ([]models.MessageView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.BadRequest("query is required")
	}
	if channelID > 0 {
		if _, err := s.member(ctx, p, channelID); err != nil {
			return nil, err
		}
	}
	msgs, err := s.messages.SearchMessages(ctx, p.TenantID, p.UserID, channelID, query, clampLimit(limit))
	if err != nil {
		return nil, apperrors.Internal("failed to search messages", err)
	}
	return s.enrich(ctx, p.TenantID, msgs)
}

func (s *Service) ListPinned(ctx context.Context, p models.Principal, channelID int64) ([]models.MessageView, error) {
	if _, err := s.member(ctx, p, channelID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListPinned(ctx, channelID)
	if err != nil {
		return nil, apperrors.Internal("failed to list pinned messages", err)
	}
	return s.enrich(ctx, p.TenantID, msgs)
}

func (s *Service) ListFiles(ctx context.Context, p models.Principal, channelID int64, limit int) ([]models.Attachment, error) {
	if _, err := s.member(ctx, p, channelID); err != nil {
		return nil, err
	}
	files, err := s.messages.ListChannelFiles(ctx, channelID, clampLimit(limit))
	if err != nil {
		return nil, apperrors.Internal("failed to list files", err)
	}
	return files, nil
}
