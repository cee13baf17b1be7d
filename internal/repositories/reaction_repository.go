package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

// ReactionRepository abstracts reaction persistence.
type ReactionRepository interface {
	AddReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error)
	RemoveReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageIDs []int64) ([]models.Reaction, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// AddReaction inserts the (message, user, emoji) row. It reports false when the row already existed.
func (r *ReactionRepo) AddReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO message_reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id, emoji) DO NOTHING`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RemoveReaction deletes the row, reporting whether one existed.
func (r *ReactionRepo) RemoveReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListReactions returns reactions for the given messages in insertion order.
func (r *ReactionRepo) ListReactions(ctx context.Context, messageIDs []int64) ([]models.Reaction, error) {
	reactions := []models.Reaction{}
	if len(messageIDs) == 0 {
		return reactions, nil
	}
	query, args, err := sqlx.In(`SELECT id, message_id, user_id, emoji, created_at FROM message_reactions WHERE message_id IN (?) ORDER BY id ASC`, messageIDs)
	if err != nil {
		return nil, err
	}
	err = r.db.SelectContext(ctx, &reactions, r.db.Rebind(query), args...)
	return reactions, err
}
