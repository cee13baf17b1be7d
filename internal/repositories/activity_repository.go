package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

// ActivityRepository persists the append-only audit trail.
type ActivityRepository interface {
	Append(ctx context.Context, activity models.Activity) (models.Activity, error)
	ListForSubject(ctx context.Context, tenantID int64, subjectType string, subjectID int64, limit int) ([]models.Activity, error)
}

// ActivityRepo is a sqlx implementation of ActivityRepository.
type ActivityRepo struct {
	db *sqlx.DB
}

// NewActivityRepo constructs an ActivityRepo.
func NewActivityRepo(db *sqlx.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

const activityColumns = `id, tenant_id, user_id, subject_type, subject_id, action, description, metadata, created_at`

func (r *ActivityRepo) Append(ctx context.Context, activity models.Activity) (models.Activity, error) {
	var out models.Activity
	err := r.db.QueryRowxContext(ctx, `INSERT INTO activity_logs (tenant_id, user_id, subject_type, subject_id, action, description, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+activityColumns,
		activity.TenantID, activity.UserID, activity.SubjectType, activity.SubjectID, activity.Action, activity.Description, activity.Metadata).
		StructScan(&out)
	return out, err
}

func (r *ActivityRepo) ListForSubject(ctx context.Context, tenantID int64, subjectType string, subjectID int64, limit int) ([]models.Activity, error) {
	entries := []models.Activity{}
	err := r.db.SelectContext(ctx, &entries, `SELECT `+activityColumns+` FROM activity_logs
        WHERE tenant_id=$1 AND subject_type=$2 AND subject_id=$3 ORDER BY id DESC LIMIT $4`, tenantID, subjectType, subjectID, limit)
	return entries, err
}
