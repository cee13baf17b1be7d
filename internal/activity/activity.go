// Package activity records the append-only audit trail of channel and message actions.
package activity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"channel-service/internal/models"
	"channel-service/internal/repositories"
	"channel-service/internal/telemetry"
)

const (
	ActionMessageSent      = "message_sent"
	ActionMessageEdited    = "message_edited"
	ActionMessageDeleted   = "message_deleted"
	ActionMessagePinned    = "message_pinned"
	ActionMessageUnpinned  = "message_unpinned"
	ActionMessageForwarded = "message_forwarded"
	ActionThreadReply      = "thread_reply"
	ActionReactionAdded    = "reaction_added"
	ActionReactionRemoved  = "reaction_removed"
	ActionChannelCreated   = "channel_created"
	ActionChannelUpdated   = "channel_updated"
	ActionChannelArchived  = "channel_archived"
	ActionMembersAdded     = "members_added"
	ActionMemberRemoved    = "member_removed"
	ActionMemberLeft       = "member_left"
	ActionRoleChanged      = "role_changed"
)

// Logger appends activity entries. Callers run it inside a detached task.
type Logger interface {
	Log(ctx context.Context, entry models.Activity) error
}

// Recorder persists entries and then publishes them to the event broker. A publish failure is
// logged only; the stored row is the record.
type Recorder struct {
	repo    repositories.ActivityRepository
	emitter *telemetry.Emitter
	log     *zap.Logger
}

func NewRecorder(repo repositories.ActivityRepository, emitter *telemetry.Emitter, log *zap.Logger) *Recorder {
	return &Recorder{repo: repo, emitter: emitter, log: log.Named("activity")}
}

func (r *Recorder) Log(ctx context.Context, entry models.Activity) error {
	stored, err := r.repo.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("append activity %s: %w", entry.Action, err)
	}
	if err := r.emitter.Emit(ctx, RoutingKey(entry.SubjectType), entry.Action, entry.TenantID, entry.UserID, stored); err != nil {
		r.log.Warn("activity publish failed", zap.String("action", entry.Action), zap.Int64("activity_id", stored.ID), zap.Error(err))
	}
	return nil
}

func RoutingKey(subjectType string) string {
	return "activity." + subjectType
}

// MessageEntry builds an entry about a message.
func MessageEntry(actor models.Principal, messageID int64, action, description string, metadata models.JSONMap) models.Activity {
	return models.Activity{
		TenantID:    actor.TenantID,
		UserID:      actor.UserID,
		SubjectType: models.SubjectMessage,
		SubjectID:   messageID,
		Action:      action,
		Description: description,
		Metadata:    metadata,
	}
}

// ChannelEntry builds an entry about a channel.
func ChannelEntry(actor models.Principal, channelID int64, action, description string, metadata models.JSONMap) models.Activity {
	return models.Activity{
		TenantID:    actor.TenantID,
		UserID:      actor.UserID,
		SubjectType: models.SubjectChannel,
		SubjectID:   channelID,
		Action:      action,
		Description: description,
		Metadata:    metadata,
	}
}
