package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, channel_id, tenant_id, sender_id, message_type, content, mentions, has_attachments, has_mentions,
    is_edited, edited_at, is_deleted, deleted_at, deleted_by, is_pinned, pinned_at, pinned_by,
    parent_message_id, thread_id, forwarded_from_id, delivered_to, read_by, created_at, updated_at`

const attachmentColumns = `id, message_id, channel_id, tenant_id, file_name, mime_type, size_bytes, content_hash, storage_key, created_at`

// MessageRepository abstracts message, attachment and read-tracking persistence.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message, attachments []models.Attachment) (models.Message, []models.Attachment, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	ListMessages(ctx context.Context, channelID, beforeID int64, limit int) ([]models.Message, error)
	ListThread(ctx context.Context, threadID int64) ([]models.Message, error)
	ThreadParticipantIDs(ctx context.Context, threadID int64) ([]int64, error)
	UpdateContent(ctx context.Context, messageID int64, content string) (models.Message, error)
	SoftDelete(ctx context.Context, messageID, deletedBy int64) (models.Message, error)
	SetPinned(ctx context.Context, messageID int64, pinned bool, actorID int64) (models.Message, error)
	ListPinned(ctx context.Context, channelID int64) ([]models.Message, error)
	SearchMessages(ctx context.Context, tenantID, userID, channelID int64, query string, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, messageID, userID int64) (models.Message, bool, error)
	MarkChannelRead(ctx context.Context, channelID, userID, upToID int64) ([]models.Message, error)
	UnreadCounts(ctx context.Context, tenantID, userID int64) (map[int64]int, error)
	ListAttachments(ctx context.Context, messageIDs []int64) ([]models.Attachment, error)
	ListChannelFiles(ctx context.Context, channelID int64, limit int) ([]models.Attachment, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message together with its attachments.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message, attachments []models.Attachment) (models.Message, []models.Attachment, error) {
	var created models.Message
	stored := make([]models.Attachment, 0, len(attachments))
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `INSERT INTO messages
            (channel_id, tenant_id, sender_id, message_type, content, mentions, has_attachments, has_mentions,
             parent_message_id, thread_id, forwarded_from_id, delivered_to, read_by)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
            RETURNING `+messageColumns,
			msg.ChannelID, msg.TenantID, msg.SenderID, msg.Type, msg.Content, msg.Mentions,
			len(attachments) > 0, msg.Mentions.Len() > 0,
			msg.ParentMessageID, msg.ThreadID, msg.ForwardedFromID, msg.DeliveredTo, msg.ReadBy).
			StructScan(&created)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		for _, a := range attachments {
			var out models.Attachment
			err := tx.QueryRowxContext(ctx, `INSERT INTO message_attachments
                (message_id, channel_id, tenant_id, file_name, mime_type, size_bytes, content_hash, storage_key)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+attachmentColumns,
				created.ID, created.ChannelID, created.TenantID, a.FileName, a.MimeType, a.SizeBytes, a.ContentHash, a.StorageKey).
				StructScan(&out)
			if err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
			stored = append(stored, out)
		}
		return nil
	})
	if err != nil {
		return models.Message{}, nil, err
	}
	return created, stored, nil
}

// GetMessage fetches a message by id, deleted or not.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessages returns top-level messages of a channel, newest first. beforeID of 0 starts at the newest.
func (r *MessageRepo) ListMessages(ctx context.Context, channelID, beforeID int64, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.SelectContext(ctx, &messages, `SELECT `+messageColumns+` FROM messages
        WHERE channel_id=$1 AND parent_message_id IS NULL AND ($2::bigint = 0 OR id < $2)
        ORDER BY id DESC LIMIT $3`, channelID, beforeID, limit)
	return messages, err
}

// ListThread returns the replies of a thread in posting order.
func (r *MessageRepo) ListThread(ctx context.Context, threadID int64) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.SelectContext(ctx, &messages, `SELECT `+messageColumns+` FROM messages WHERE thread_id=$1 ORDER BY id ASC`, threadID)
	return messages, err
}

// ThreadParticipantIDs returns the distinct senders of the thread root and its replies.
func (r *MessageRepo) ThreadParticipantIDs(ctx context.Context, threadID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT sender_id FROM messages WHERE id=$1 OR thread_id=$1 ORDER BY sender_id`, threadID)
	return ids, err
}

// UpdateContent replaces the content of a live message and flags it edited.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID int64, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET content=$2, is_edited = TRUE, edited_at = NOW(), updated_at = NOW()
        WHERE id=$1 AND is_deleted = FALSE RETURNING `+messageColumns, messageID, content).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDelete blanks a message and records who removed it. The row stays for thread integrity.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID, deletedBy int64) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET content = '', is_deleted = TRUE, deleted_at = NOW(), deleted_by=$2,
            is_pinned = FALSE, pinned_at = NULL, pinned_by = NULL, updated_at = NOW()
        WHERE id=$1 AND is_deleted = FALSE RETURNING `+messageColumns, messageID, deletedBy).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SetPinned pins or unpins a live message.
func (r *MessageRepo) SetPinned(ctx context.Context, messageID int64, pinned bool, actorID int64) (models.Message, error) {
	var msg models.Message
	query := `UPDATE messages SET is_pinned = TRUE, pinned_at = NOW(), pinned_by=$2, updated_at = NOW()
        WHERE id=$1 AND is_deleted = FALSE RETURNING ` + messageColumns
	args := []any{messageID, actorID}
	if !pinned {
		query = `UPDATE messages SET is_pinned = FALSE, pinned_at = NULL, pinned_by = NULL, updated_at = NOW()
            WHERE id=$1 AND is_deleted = FALSE RETURNING ` + messageColumns
		args = args[:1]
	}
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListPinned returns the pinned messages of a channel, most recently pinned first.
func (r *MessageRepo) ListPinned(ctx context.Context, channelID int64) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.SelectContext(ctx, &messages, `SELECT `+messageColumns+` FROM messages
        WHERE channel_id=$1 AND is_pinned = TRUE AND is_deleted = FALSE ORDER BY pinned_at DESC`, channelID)
	return messages, err
}

// SearchMessages matches live message content in channels the user actively belongs to.
// channelID of 0 searches every such channel.
func (r *MessageRepo) SearchMessages(ctx context.Context, tenantID, userID, channelID int64, query string, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.SelectContext(ctx, &messages, `SELECT `+qualify("m", messageColumns)+` FROM messages m
        INNER JOIN channel_participants p ON p.channel_id = m.channel_id AND p.user_id=$2 AND p.is_active = TRUE
        WHERE m.tenant_id=$1 AND m.is_deleted = FALSE AND m.content ILIKE $3 AND ($4::bigint = 0 OR m.channel_id=$4)
        ORDER BY m.id DESC LIMIT $5`, tenantID, userID, containsPattern(query), channelID, limit)
	return messages, err
}

// MarkRead adds userID to the message's read set under a row lock. changed is false when the user
// had already read it.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID, userID int64) (models.Message, bool, error) {
	var (
		msg     models.Message
		changed bool
	)
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1 FOR UPDATE`, messageID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		if !msg.ReadBy.Add(userID) {
			return nil
		}
		changed = true
		_, err = tx.ExecContext(ctx, `UPDATE messages SET read_by=$2 WHERE id=$1`, messageID, msg.ReadBy)
		return err
	})
	if err != nil {
		return models.Message{}, false, err
	}
	return msg, changed, nil
}

// MarkChannelRead marks every live message from other senders up to upToID (0 for all) as read by
// userID and returns the messages that changed.
func (r *MessageRepo) MarkChannelRead(ctx context.Context, channelID, userID, upToID int64) ([]models.Message, error) {
	changed := []models.Message{}
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		pending := []models.Message{}
		err := tx.SelectContext(ctx, &pending, `SELECT `+messageColumns+` FROM messages
            WHERE channel_id=$1 AND sender_id <> $2 AND is_deleted = FALSE AND ($3::bigint = 0 OR id <= $3)
            AND NOT `+models.RecipientContainsSQL("read_by", "$2")+`
            ORDER BY id ASC FOR UPDATE`, channelID, userID, upToID)
		if err != nil {
			return err
		}
		for _, msg := range pending {
			if !msg.ReadBy.Add(userID) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE messages SET read_by=$2 WHERE id=$1`, msg.ID, msg.ReadBy); err != nil {
				return err
			}
			changed = append(changed, msg)
		}
		_, err = tx.ExecContext(ctx, `UPDATE channel_participants SET last_read_at = NOW() WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// UnreadCounts returns, per live channel, how many messages were delivered to the user but not read.
// Channels with nothing unread are omitted.
func (r *MessageRepo) UnreadCounts(ctx context.Context, tenantID, userID int64) (map[int64]int, error) {
	var rows []struct {
		ChannelID int64 `db:"channel_id"`
		Unread    int   `db:"unread"`
	}
	err := r.db.SelectContext(ctx, &rows, `SELECT m.channel_id, COUNT(*) AS unread FROM messages m
        INNER JOIN channels c ON c.id = m.channel_id AND c.tenant_id=$1 AND c.is_archived = FALSE
        INNER JOIN channel_participants p ON p.channel_id = m.channel_id AND p.user_id=$2 AND p.is_active = TRUE
        WHERE m.sender_id <> $2 AND m.is_deleted = FALSE
        AND `+models.RecipientContainsSQL("m.delivered_to", "$2")+`
        AND NOT `+models.RecipientContainsSQL("m.read_by", "$2")+`
        GROUP BY m.channel_id`, tenantID, userID)
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.ChannelID] = row.Unread
	}
	return counts, nil
}

// ListAttachments returns the attachments of the given messages.
func (r *MessageRepo) ListAttachments(ctx context.Context, messageIDs []int64) ([]models.Attachment, error) {
	attachments := []models.Attachment{}
	if len(messageIDs) == 0 {
		return attachments, nil
	}
	query, args, err := sqlx.In(`SELECT `+attachmentColumns+` FROM message_attachments WHERE message_id IN (?) ORDER BY id ASC`, messageIDs)
	if err != nil {
		return nil, err
	}
	err = r.db.SelectContext(ctx, &attachments, r.db.Rebind(query), args...)
	return attachments, err
}

// ListChannelFiles returns attachments of live messages in a channel, newest first.
func (r *MessageRepo) ListChannelFiles(ctx context.Context, channelID int64, limit int) ([]models.Attachment, error) {
	attachments := []models.Attachment{}
	err := r.db.SelectContext(ctx, &attachments, `SELECT `+qualify("a", attachmentColumns)+` FROM message_attachments a
        INNER JOIN messages m ON m.id = a.message_id AND m.is_deleted = FALSE
        WHERE a.channel_id=$1 ORDER BY a.id DESC LIMIT $2`, channelID, limit)
	return attachments, err
}
