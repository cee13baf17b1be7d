package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

var (
	ErrChannelNotFound     = errors.New("channel not found")
	ErrParticipantNotFound = errors.New("participant not found")
)

const channelColumns = `id, tenant_id, name, description, kind, is_private, is_archived, member_count, created_by, created_at, updated_at, archived_at`

const participantColumns = `channel_id, user_id, tenant_id, role, is_active, is_muted, is_pinned, joined_at, left_at, last_read_at`

// ChannelRepository abstracts channel and participant persistence.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, channel models.Channel, participants []models.Participant) (models.Channel, error)
	FindDirectChannel(ctx context.Context, tenantID, userA, userB int64) (models.Channel, error)
	GetChannel(ctx context.Context, channelID int64) (models.Channel, error)
	UpdateChannel(ctx context.Context, channelID int64, update models.ChannelUpdate) (models.Channel, error)
	ArchiveChannel(ctx context.Context, channelID int64) error
	ListChannelsForUser(ctx context.Context, tenantID, userID int64) ([]models.ChannelSummary, error)
	SearchChannels(ctx context.Context, tenantID, userID int64, query string, limit int) ([]models.Channel, error)
	ChannelIDsForUser(ctx context.Context, tenantID, userID int64) ([]int64, error)

	GetParticipant(ctx context.Context, channelID, userID int64) (models.Participant, error)
	ListParticipants(ctx context.Context, channelID int64) ([]models.Participant, error)
	ActiveMemberIDs(ctx context.Context, channelID int64) ([]int64, error)
	AddParticipants(ctx context.Context, channelID, tenantID int64, userIDs []int64) ([]int64, error)
	DeactivateParticipant(ctx context.Context, channelID, userID int64) (bool, error)
	ChangeRole(ctx context.Context, channelID, userID int64, role string) error
	TransferOwnership(ctx context.Context, channelID, fromUserID, toUserID int64) error
	UpdatePreferences(ctx context.Context, channelID, userID int64, prefs models.ParticipantPreferences) (models.Participant, error)
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// CreateChannel inserts the channel and its participants atomically. member_count starts at the
// number of participants.
func (r *ChannelRepo) CreateChannel(ctx context.Context, channel models.Channel, participants []models.Participant) (models.Channel, error) {
	var created models.Channel
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `INSERT INTO channels (tenant_id, name, description, kind, is_private, member_count, created_by)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+channelColumns,
			channel.TenantID, channel.Name, channel.Description, channel.Kind, channel.IsPrivate, len(participants), channel.CreatedBy).
			StructScan(&created)
		if err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
		for _, p := range participants {
			if _, err := tx.ExecContext(ctx, `INSERT INTO channel_participants (channel_id, user_id, tenant_id, role) VALUES ($1, $2, $3, $4)`,
				created.ID, p.UserID, channel.TenantID, p.Role); err != nil {
				return fmt.Errorf("insert participant %d: %w", p.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Channel{}, err
	}
	return created, nil
}

// FindDirectChannel returns the live direct channel between two users, if any.
func (r *ChannelRepo) FindDirectChannel(ctx context.Context, tenantID, userA, userB int64) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+qualify("c", channelColumns)+` FROM channels c
        INNER JOIN channel_participants a ON a.channel_id = c.id AND a.user_id = $2
        INNER JOIN channel_participants b ON b.channel_id = c.id AND b.user_id = $3
        WHERE c.tenant_id = $1 AND c.kind = 'direct' AND c.is_archived = FALSE
        LIMIT 1`, tenantID, userA, userB)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// GetChannel fetches a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID int64) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// UpdateChannel applies the non-nil fields of update.
func (r *ChannelRepo) UpdateChannel(ctx context.Context, channelID int64, update models.ChannelUpdate) (models.Channel, error) {
	var channel models.Channel
	err := r.db.QueryRowxContext(ctx, `UPDATE channels SET
            name = COALESCE($2::text, name),
            description = COALESCE($3::text, description),
            is_private = COALESCE($4::boolean, is_private),
            updated_at = NOW()
        WHERE id=$1 RETURNING `+channelColumns, channelID, update.Name, update.Description, update.IsPrivate).
		StructScan(&channel)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// ArchiveChannel soft-deletes a channel. Messages keep referencing it.
func (r *ChannelRepo) ArchiveChannel(ctx context.Context, channelID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE channels SET is_archived = TRUE, archived_at = NOW(), updated_at = NOW() WHERE id=$1 AND is_archived = FALSE`, channelID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// ListChannelsForUser returns the live channels the user actively participates in, pinned first.
func (r *ChannelRepo) ListChannelsForUser(ctx context.Context, tenantID, userID int64) ([]models.ChannelSummary, error) {
	query := `SELECT ` + qualify("c", channelColumns) + `, p.role, p.is_muted, p.is_pinned,
            (SELECT MAX(m.created_at) FROM messages m WHERE m.channel_id = c.id) AS last_message_at
        FROM channels c
        INNER JOIN channel_participants p ON p.channel_id = c.id
        WHERE c.tenant_id=$1 AND p.user_id=$2 AND p.is_active = TRUE AND c.is_archived = FALSE
        ORDER BY p.is_pinned DESC, last_message_at DESC NULLS LAST, c.created_at DESC`
	channels := []models.ChannelSummary{}
	err := r.db.SelectContext(ctx, &channels, query, tenantID, userID)
	return channels, err
}

// SearchChannels matches channel names visible to the user: channels they belong to plus public groups.
func (r *ChannelRepo) SearchChannels(ctx context.Context, tenantID, userID int64, query string, limit int) ([]models.Channel, error) {
	channels := []models.Channel{}
	err := r.db.SelectContext(ctx, &channels, `SELECT `+qualify("c", channelColumns)+` FROM channels c
        WHERE c.tenant_id=$1 AND c.is_archived = FALSE AND c.name ILIKE $3
        AND ((c.kind = 'group' AND c.is_private = FALSE)
            OR EXISTS(SELECT 1 FROM channel_participants p WHERE p.channel_id = c.id AND p.user_id=$2 AND p.is_active = TRUE))
        ORDER BY c.name ASC LIMIT $4`, tenantID, userID, containsPattern(query), limit)
	return channels, err
}

// ChannelIDsForUser lists the ids of live channels the user actively participates in.
func (r *ChannelRepo) ChannelIDsForUser(ctx context.Context, tenantID, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `SELECT c.id FROM channels c
        INNER JOIN channel_participants p ON p.channel_id = c.id
        WHERE c.tenant_id=$1 AND p.user_id=$2 AND p.is_active = TRUE AND c.is_archived = FALSE`, tenantID, userID)
	return ids, err
}

// GetParticipant fetches the participant row regardless of its active flag.
func (r *ChannelRepo) GetParticipant(ctx context.Context, channelID, userID int64) (models.Participant, error) {
	var p models.Participant
	err := r.db.GetContext(ctx, &p, `SELECT `+participantColumns+` FROM channel_participants WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, ErrParticipantNotFound
	}
	return p, err
}

// ListParticipants returns the active participants, owners first.
func (r *ChannelRepo) ListParticipants(ctx context.Context, channelID int64) ([]models.Participant, error) {
	participants := []models.Participant{}
	err := r.db.SelectContext(ctx, &participants, `SELECT `+participantColumns+` FROM channel_participants
        WHERE channel_id=$1 AND is_active = TRUE
        ORDER BY CASE role WHEN 'owner' THEN 0 WHEN 'admin' THEN 1 ELSE 2 END, joined_at ASC`, channelID)
	return participants, err
}

// ActiveMemberIDs returns the user ids of active participants.
func (r *ChannelRepo) ActiveMemberIDs(ctx context.Context, channelID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM channel_participants WHERE channel_id=$1 AND is_active = TRUE ORDER BY user_id`, channelID)
	return ids, err
}

// AddParticipants inserts new participants or reactivates departed ones, skipping users that are
// already active. It returns the ids actually added and bumps member_count by that many.
func (r *ChannelRepo) AddParticipants(ctx context.Context, channelID, tenantID int64, userIDs []int64) ([]int64, error) {
	added := []int64{}
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, userID := range dedupeIDs(userIDs) {
			res, err := tx.ExecContext(ctx, `INSERT INTO channel_participants (channel_id, user_id, tenant_id, role, is_active, joined_at)
                VALUES ($1, $2, $3, 'member', TRUE, NOW())
                ON CONFLICT (channel_id, user_id) DO UPDATE
                    SET is_active = TRUE, role = 'member', left_at = NULL, joined_at = NOW()
                    WHERE channel_participants.is_active = FALSE`, channelID, userID, tenantID)
			if err != nil {
				return fmt.Errorf("add participant %d: %w", userID, err)
			}
			count, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if count > 0 {
				added = append(added, userID)
			}
		}
		if len(added) == 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, `UPDATE channels SET member_count = member_count + $2, updated_at = NOW() WHERE id=$1`, channelID, len(added))
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// DeactivateParticipant marks an active participant as departed and decrements member_count.
// It reports false when the user was not an active participant.
func (r *ChannelRepo) DeactivateParticipant(ctx context.Context, channelID, userID int64) (bool, error) {
	var removed bool
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE channel_participants SET is_active = FALSE, left_at = NOW()
            WHERE channel_id=$1 AND user_id=$2 AND is_active = TRUE`, channelID, userID)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		removed = true
		_, err = tx.ExecContext(ctx, `UPDATE channels SET member_count = GREATEST(member_count - 1, 0), updated_at = NOW() WHERE id=$1`, channelID)
		return err
	})
	return removed, err
}

// ChangeRole sets the role of an active participant.
func (r *ChannelRepo) ChangeRole(ctx context.Context, channelID, userID int64, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE channel_participants SET role=$3 WHERE channel_id=$1 AND user_id=$2 AND is_active = TRUE`, channelID, userID, role)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// TransferOwnership installs toUserID as owner and demotes fromUserID to admin in one transaction.
func (r *ChannelRepo) TransferOwnership(ctx context.Context, channelID, fromUserID, toUserID int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE channel_participants SET role = 'owner' WHERE channel_id=$1 AND user_id=$2 AND is_active = TRUE`, channelID, toUserID)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrParticipantNotFound
		}
		_, err = tx.ExecContext(ctx, `UPDATE channel_participants SET role = 'admin' WHERE channel_id=$1 AND user_id=$2`, channelID, fromUserID)
		return err
	})
}

// UpdatePreferences applies the non-nil preference fields for an active participant.
func (r *ChannelRepo) UpdatePreferences(ctx context.Context, channelID, userID int64, prefs models.ParticipantPreferences) (models.Participant, error) {
	var p models.Participant
	err := r.db.QueryRowxContext(ctx, `UPDATE channel_participants SET
            is_muted = COALESCE($3::boolean, is_muted),
            is_pinned = COALESCE($4::boolean, is_pinned)
        WHERE channel_id=$1 AND user_id=$2 AND is_active = TRUE RETURNING `+participantColumns,
		channelID, userID, prefs.IsMuted, prefs.IsPinned).StructScan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, ErrParticipantNotFound
	}
	return p, err
}
