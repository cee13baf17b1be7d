// Package messaging implements the channel and message operations: membership and roles,
// send/edit/delete/pin/forward, reactions, threads and read tracking. Every operation persists
// first, pushes the realtime event inline and hands the remaining side effects to a dispatcher.
package messaging

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"channel-service/internal/activity"
	"channel-service/internal/apperrors"
	"channel-service/internal/cache"
	"channel-service/internal/config"
	"channel-service/internal/dispatch"
	"channel-service/internal/identity"
	"channel-service/internal/models"
	"channel-service/internal/notifications"
	"channel-service/internal/registry"
	"channel-service/internal/repositories"
)

// ChannelRouter keeps the local connection registry's channel map in step with membership.
type ChannelRouter interface {
	JoinChannel(channelID int64, userIDs ...int64)
	LeaveChannel(channelID int64, userIDs ...int64)
}

type Dependencies struct {
	Channels    repositories.ChannelRepository
	Messages    repositories.MessageRepository
	Reactions   repositories.ReactionRepository
	Members     *Members
	Cache       cache.Cache
	CacheConfig config.CacheConfig
	Broadcaster registry.Broadcaster
	Router      ChannelRouter
	Notifier    notifications.Notifier
	Activity    activity.Logger
	Directory   identity.Directory
	Dispatcher  dispatch.Dispatcher
	Log         *zap.Logger
}

type Service struct {
	channels  repositories.ChannelRepository
	messages  repositories.MessageRepository
	reactions repositories.ReactionRepository
	members   *Members
	cache     cache.Cache
	ttl       config.CacheConfig
	broadcast registry.Broadcaster
	router    ChannelRouter
	notifier  notifications.Notifier
	activity  activity.Logger
	directory identity.Directory
	dispatch  dispatch.Dispatcher
	tracer    trace.Tracer
	log       *zap.Logger
}

func New(deps Dependencies) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := deps.Cache
	if c == nil {
		c = cache.Noop{}
	}
	members := deps.Members
	if members == nil {
		members = NewMembers(deps.Channels, c, deps.CacheConfig.MembershipTTL)
	}
	return &Service{
		channels:  deps.Channels,
		messages:  deps.Messages,
		reactions: deps.Reactions,
		members:   members,
		cache:     c,
		ttl:       deps.CacheConfig,
		broadcast: deps.Broadcaster,
		router:    deps.Router,
		notifier:  deps.Notifier,
		activity:  deps.Activity,
		directory: deps.Directory,
		dispatch:  deps.Dispatcher,
		tracer:    otel.Tracer("channel-service/messaging"),
		log:       log.Named("messaging"),
	}
}

func (s *Service) startSpan(ctx context.Context, name string, p models.Principal) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "messaging."+name, trace.WithAttributes(
		attribute.Int64("tenant.id", p.TenantID),
		attribute.Int64("user.id", p.UserID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil && apperrors.CodeOf(err) == apperrors.CodeInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// member resolves the caller's active participant row. A caller from another tenant is treated
// as a non-member.
func (s *Service) member(ctx context.Context, p models.Principal, channelID int64) (models.Participant, error) {
	part, err := s.members.ActiveParticipant(ctx, channelID, p.UserID)
	if err != nil {
		if isNotFound(err) {
			return models.Participant{}, apperrors.Unauthorized("not a member of this channel")
		}
		return models.Participant{}, apperrors.Internal("membership lookup failed", err)
	}
	if part.TenantID != p.TenantID {
		return models.Participant{}, apperrors.Unauthorized("not a member of this channel")
	}
	return part, nil
}

// channelFor loads the channel after checking membership.
func (s *Service) channelFor(ctx context.Context, p models.Principal, channelID int64) (models.Channel, models.Participant, error) {
	part, err := s.member(ctx, p, channelID)
	if err != nil {
		return models.Channel{}, models.Participant{}, err
	}
	channel, err := s.channels.GetChannel(ctx, channelID)
	if err != nil {
		return models.Channel{}, models.Participant{}, storeErr(err, "channel not found")
	}
	return channel, part, nil
}

// messageFor loads a live message and the caller's membership in its channel.
func (s *Service) messageFor(ctx context.Context, p models.Principal, messageID int64) (models.Message, models.Participant, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, models.Participant{}, storeErr(err, "message not found")
	}
	part, err := s.member(ctx, p, msg.ChannelID)
	if err != nil {
		return models.Message{}, models.Participant{}, err
	}
	if msg.IsDeleted {
		return models.Message{}, models.Participant{}, apperrors.NotFound("message not found")
	}
	return msg, part, nil
}

func storeErr(err error, notFound string) error {
	if isNotFound(err) {
		return apperrors.NotFound(notFound)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Internal("storage failure", err)
}

func (s *Service) displayName(ctx context.Context, p models.Principal) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return s.directory.Profile(ctx, p.TenantID, p.UserID).DisplayName
}

// detach hands a side effect to the dispatcher. A full or closed queue is logged and the
// primary operation still succeeds.
func (s *Service) detach(ctx context.Context, name string, task dispatch.Task) {
	if err := s.dispatch.Dispatch(ctx, name, task); err != nil {
		s.log.Warn("side effect dropped", zap.String("task", name), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, entry models.Activity) {
	s.detach(ctx, "activity."+entry.Action, func(ctx context.Context) error {
		return s.activity.Log(ctx, entry)
	})
}

// invalidate drops the given cache keys and patterns in the background.
func (s *Service) invalidate(ctx context.Context, keys []string, patterns ...string) {
	s.detach(ctx, "cache.invalidate", func(ctx context.Context) error {
		var errs []error
		if len(keys) > 0 {
			errs = append(errs, s.cache.Delete(ctx, keys...))
		}
		for _, pattern := range patterns {
			errs = append(errs, s.cache.DeletePattern(ctx, pattern))
		}
		return errors.Join(errs...)
	})
}

func channelListKeys(tenantID int64, userIDs []int64) []string {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cache.ChannelListKey(tenantID, id))
	}
	return keys
}

func unreadKeys(tenantID int64, userIDs []int64) []string {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cache.UnreadKey(tenantID, id))
	}
	return keys
}

// enrich attaches sender names, attachments and reactions to a page of messages.
func (s *Service) enrich(ctx context.Context, tenantID int64, msgs []models.Message) ([]models.MessageView, error) {
	views := make([]models.MessageView, 0, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}
	ids := make([]int64, 0, len(msgs))
	withFiles := make([]int64, 0)
	senders := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
		senders = append(senders, m.SenderID)
		if m.HasAttachments {
			withFiles = append(withFiles, m.ID)
		}
	}

	files := map[int64][]models.Attachment{}
	if len(withFiles) > 0 {
		attachments, err := s.messages.ListAttachments(ctx, withFiles)
		if err != nil {
			return nil, apperrors.Internal("failed to load attachments", err)
		}
		for _, a := range attachments {
			files[a.MessageID] = append(files[a.MessageID], a)
		}
	}
	reactions, err := s.reactions.ListReactions(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("failed to load reactions", err)
	}
	byMessage := map[int64][]models.Reaction{}
	for _, r := range reactions {
		byMessage[r.MessageID] = append(byMessage[r.MessageID], r)
	}
	profiles := s.directory.Profiles(ctx, tenantID, senders)

	for _, m := range msgs {
		if m.IsDeleted {
			m.Content = ""
		}
		views = append(views, models.MessageView{
			Message:     m,
			SenderName:  profiles[m.SenderID].DisplayName,
			Attachments: files[m.ID],
			Reactions:   byMessage[m.ID],
		})
	}
	return views, nil
}

func validateContent(content string, allowEmpty bool) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" && !allowEmpty {
		return "", apperrors.BadRequest("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", apperrors.BadRequest("content is too long")
	}
	return content, nil
}

func preview(content string) string {
	const max = 120
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	return string(runes[:max]) + "…"
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func without(ids []int64, exclude int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
