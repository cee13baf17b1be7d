package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"channel-service/internal/config"
)

// Connect opens the Postgres pool and, when enabled, applies schema migrations.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if cfg.Migrate {
		if err := runMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("database migrations applied")
	}
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS channels (
            id BIGSERIAL PRIMARY KEY,
            tenant_id BIGINT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            kind TEXT NOT NULL CHECK (kind IN ('direct', 'group')),
            is_private BOOLEAN NOT NULL DEFAULT FALSE,
            is_archived BOOLEAN NOT NULL DEFAULT FALSE,
            member_count INT NOT NULL DEFAULT 0,
            created_by BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            archived_at TIMESTAMPTZ
        );`,
	`CREATE INDEX IF NOT EXISTS channels_tenant_idx ON channels (tenant_id, is_archived);`,
	`CREATE TABLE IF NOT EXISTS channel_participants (
            channel_id BIGINT NOT NULL REFERENCES channels(id),
            user_id BIGINT NOT NULL,
            tenant_id BIGINT NOT NULL,
            role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('owner', 'admin', 'member')),
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            is_muted BOOLEAN NOT NULL DEFAULT FALSE,
            is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            left_at TIMESTAMPTZ,
            last_read_at TIMESTAMPTZ,
            PRIMARY KEY (channel_id, user_id)
        );`,
	`CREATE INDEX IF NOT EXISTS channel_participants_user_idx ON channel_participants (user_id, is_active);`,
	`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            channel_id BIGINT NOT NULL REFERENCES channels(id),
            tenant_id BIGINT NOT NULL,
            sender_id BIGINT NOT NULL,
            message_type TEXT NOT NULL DEFAULT 'text',
            content TEXT NOT NULL DEFAULT '',
            mentions TEXT NOT NULL DEFAULT '',
            has_attachments BOOLEAN NOT NULL DEFAULT FALSE,
            has_mentions BOOLEAN NOT NULL DEFAULT FALSE,
            is_edited BOOLEAN NOT NULL DEFAULT FALSE,
            edited_at TIMESTAMPTZ,
            is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_at TIMESTAMPTZ,
            deleted_by BIGINT,
            is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
            pinned_at TIMESTAMPTZ,
            pinned_by BIGINT,
            parent_message_id BIGINT REFERENCES messages(id),
            thread_id BIGINT REFERENCES messages(id),
            forwarded_from_id BIGINT REFERENCES messages(id),
            delivered_to TEXT NOT NULL DEFAULT '',
            read_by TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS messages_channel_idx ON messages (channel_id, id DESC);`,
	`CREATE INDEX IF NOT EXISTS messages_thread_idx ON messages (thread_id) WHERE thread_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS message_reactions (
            id BIGSERIAL PRIMARY KEY,
            message_id BIGINT NOT NULL REFERENCES messages(id),
            user_id BIGINT NOT NULL,
            emoji TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (message_id, user_id, emoji)
        );`,
	`CREATE TABLE IF NOT EXISTS message_attachments (
            id BIGSERIAL PRIMARY KEY,
            message_id BIGINT NOT NULL REFERENCES messages(id),
            channel_id BIGINT NOT NULL REFERENCES channels(id),
            tenant_id BIGINT NOT NULL,
            file_name TEXT NOT NULL,
            mime_type TEXT NOT NULL DEFAULT 'application/octet-stream',
            size_bytes BIGINT NOT NULL DEFAULT 0,
            content_hash TEXT NOT NULL DEFAULT '',
            storage_key TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS message_attachments_channel_idx ON message_attachments (channel_id, id DESC);`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
            id BIGSERIAL PRIMARY KEY,
            tenant_id BIGINT NOT NULL,
            user_id BIGINT NOT NULL,
            subject_type TEXT NOT NULL,
            subject_id BIGINT NOT NULL,
            action TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            metadata JSONB NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS notifications (
            id BIGSERIAL PRIMARY KEY,
            tenant_id BIGINT NOT NULL,
            recipient_id BIGINT NOT NULL,
            event_type TEXT NOT NULL,
            payload JSONB NOT NULL DEFAULT '{}',
            priority TEXT NOT NULL DEFAULT 'normal',
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            read_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications (tenant_id, recipient_id, is_read);`,
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
