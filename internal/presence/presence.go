// Package presence tracks which users are online.
//
// Presence is approximate. A user is online while their TTL key exists; crashed connections are only
// noticed when the key expires, and the online list is a SCAN over the tenant's namespace, so it may
// include users whose key is about to expire or miss keys written during the scan.
package presence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Status is the presence of one user.
type Status struct {
	UserID   int64      `json:"user_id"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type Tracker interface {
	SetOnline(ctx context.Context, tenantID, userID int64) error
	SetOffline(ctx context.Context, tenantID, userID int64) error
	Status(ctx context.Context, tenantID, userID int64) (Status, error)
	Statuses(ctx context.Context, tenantID int64, userIDs []int64) ([]Status, error)
	OnlineUsers(ctx context.Context, tenantID int64) ([]int64, error)
}

func Key(tenantID, userID int64) string {
	return fmt.Sprintf("presence:%d:%d", tenantID, userID)
}

func tenantPattern(tenantID int64) string {
	return fmt.Sprintf("presence:%d:*", tenantID)
}

// RedisTracker stores "presence:<tenant>:<user>" keys holding the last-seen unix time.
type RedisTracker struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisTracker(client redis.UniversalClient, ttl time.Duration, log *zap.Logger) *RedisTracker {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &RedisTracker{client: client, ttl: ttl, log: log.Named("presence")}
}

// SetOnline writes or refreshes the user's key. Calling it again is the heartbeat.
func (t *RedisTracker) SetOnline(ctx context.Context, tenantID, userID int64) error {
	return t.client.Set(ctx, Key(tenantID, userID), time.Now().Unix(), t.ttl).Err()
}

func (t *RedisTracker) SetOffline(ctx context.Context, tenantID, userID int64) error {
	return t.client.Del(ctx, Key(tenantID, userID)).Err()
}

func (t *RedisTracker) Status(ctx context.Context, tenantID, userID int64) (Status, error) {
	statuses, err := t.Statuses(ctx, tenantID, []int64{userID})
	if err != nil {
		return Status{UserID: userID}, err
	}
	return statuses[0], nil
}

// Statuses looks up many users with a single MGET.
func (t *RedisTracker) Statuses(ctx context.Context, tenantID int64, userIDs []int64) ([]Status, error) {
	out := make([]Status, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = Key(tenantID, id)
		out[i] = Status{UserID: id}
	}
	values, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return out, err
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		out[i].Online = true
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			seen := time.Unix(unix, 0).UTC()
			out[i].LastSeen = &seen
		}
	}
	return out, nil
}

// OnlineUsers scans the tenant's presence namespace.
func (t *RedisTracker) OnlineUsers(ctx context.Context, tenantID int64) ([]int64, error) {
	prefix := fmt.Sprintf("presence:%d:", tenantID)
	users := []int64{}
	iter := t.client.Scan(ctx, 0, tenantPattern(tenantID), 500).Iterator()
	for iter.Next(ctx) {
		id, err := strconv.ParseInt(strings.TrimPrefix(iter.Val(), prefix), 10, 64)
		if err != nil {
			t.log.Debug("skipping malformed presence key", zap.String("key", iter.Val()))
			continue
		}
		users = append(users, id)
	}
	return users, iter.Err()
}

// Disabled reports everyone offline. It is used when redis is not configured.
type Disabled struct{}

func (Disabled) SetOnline(context.Context, int64, int64) error { return nil }
func (Disabled) SetOffline(context.Context, int64, int64) error { return nil }
func (Disabled) Status(_ context.Context, _ int64, userID int64) (Status, error) {
	return Status{UserID: userID}, nil
}
func (Disabled) Statuses(_ context.Context, _ int64, userIDs []int64) ([]Status, error) {
	out := make([]Status, len(userIDs))
	for i, id := range userIDs {
		out[i] = Status{UserID: id}
	}
	return out, nil
}
func (Disabled) OnlineUsers(context.Context, int64) ([]int64, error) { return []int64{}, nil }
