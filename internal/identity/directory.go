package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"channel-service/internal/cache"
	"channel-service/internal/models"
)

// UserSource is the remote user directory. The gRPC UserClient satisfies it.
type UserSource interface {
	GetUser(ctx context.Context, tenantID, userID int64) (models.UserProfile, error)
	BulkUsers(ctx context.Context, tenantID int64, ids []int64) ([]models.UserProfile, error)
}

// Directory returns display data for users. It never fails: unknown or unreachable users get a
// placeholder profile.
type Directory interface {
	Profile(ctx context.Context, tenantID, userID int64) models.UserProfile
	Profiles(ctx context.Context, tenantID int64, userIDs []int64) map[int64]models.UserProfile
}

// CachedDirectory reads profiles through the cache. source may be nil when no directory is
// configured.
type CachedDirectory struct {
	source  UserSource
	cache   cache.Cache
	ttl     time.Duration
	timeout time.Duration
	log     *zap.Logger
}

func NewCachedDirectory(source UserSource, c cache.Cache, ttl, timeout time.Duration, log *zap.Logger) *CachedDirectory {
	return &CachedDirectory{source: source, cache: c, ttl: ttl, timeout: timeout, log: log.Named("directory")}
}

func Placeholder(tenantID, userID int64) models.UserProfile {
	name := fmt.Sprintf("user-%d", userID)
	return models.UserProfile{ID: userID, TenantID: tenantID, Username: name, DisplayName: name}
}

func (d *CachedDirectory) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *CachedDirectory) Profile(ctx context.Context, tenantID, userID int64) models.UserProfile {
	if d.source == nil {
		return Placeholder(tenantID, userID)
	}
	profile, err := cache.Fetch(ctx, d.cache, cache.ProfileKey(tenantID, userID), d.ttl, func(ctx context.Context) (models.UserProfile, error) {
		callCtx, cancel := d.callCtx(ctx)
		defer cancel()
		return d.source.GetUser(callCtx, tenantID, userID)
	})
	if err != nil {
		d.log.Debug("profile lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return Placeholder(tenantID, userID)
	}
	return profile
}

// Profiles resolves cached entries first and fetches the rest in one bulk call.
func (d *CachedDirectory) Profiles(ctx context.Context, tenantID int64, userIDs []int64) map[int64]models.UserProfile {
	out := make(map[int64]models.UserProfile, len(userIDs))
	if d.source == nil {
		for _, id := range userIDs {
			out[id] = Placeholder(tenantID, id)
		}
		return out
	}

	missing := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		if _, done := out[id]; done {
			continue
		}
		raw, err := d.cache.Get(ctx, cache.ProfileKey(tenantID, id))
		if err == nil {
			var profile models.UserProfile
			if json.Unmarshal(raw, &profile) == nil {
				out[id] = profile
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out
	}

	callCtx, cancel := d.callCtx(ctx)
	defer cancel()
	profiles, err := d.source.BulkUsers(callCtx, tenantID, missing)
	if err != nil {
		d.log.Debug("bulk profile lookup failed", zap.Int("count", len(missing)), zap.Error(err))
	}
	for _, profile := range profiles {
		out[profile.ID] = profile
		if encoded, err := json.Marshal(profile); err == nil {
			_ = d.cache.Set(ctx, cache.ProfileKey(tenantID, profile.ID), encoded, d.ttl)
		}
	}
	for _, id := range missing {
		if _, ok := out[id]; !ok {
			out[id] = Placeholder(tenantID, id)
		}
	}
	return out
}
