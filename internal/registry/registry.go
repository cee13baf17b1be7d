// Package registry routes realtime events to live connections. It holds derived state only: the
// member sets it keeps are rebuilt from the store on every connect and never consulted for
// authorization.
package registry

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"channel-service/internal/models"
	"channel-service/internal/observability"
)

// Conn is a live connection handle. Send must not block; it returns false when the event could not
// be queued for the connection.
type Conn interface {
	ID() string
	UserID() int64
	Send(event models.Event) bool
}

// Broadcaster is the fan-out surface handed to services.
type Broadcaster interface {
	ToUser(ctx context.Context, userID int64, event models.Event)
	// ToChannel pushes to every live connection of every active member except exclude (0 excludes
	// nobody).
	ToChannel(ctx context.Context, channelID int64, event models.Event, exclude int64)
}

// MemberSource resolves a channel's active member ids.
type MemberSource interface {
	ActiveMemberIDs(ctx context.Context, channelID int64) ([]int64, error)
}

// Registry maps users to their connections and channels to locally connected members. Connection
// goroutines register and unregister concurrently with broadcasts, so the maps sit behind a mutex.
type Registry struct {
	mu           sync.RWMutex
	users        map[int64]map[string]Conn
	channels     map[int64]map[int64]struct{}
	userChannels map[int64]map[int64]struct{}

	members MemberSource
	log     *zap.Logger
}

// New creates an empty registry. members may be nil, in which case channel broadcasts use the local
// channel map only.
func New(members MemberSource, log *zap.Logger) *Registry {
	return &Registry{
		users:        make(map[int64]map[string]Conn),
		channels:     make(map[int64]map[int64]struct{}),
		userChannels: make(map[int64]map[int64]struct{}),
		members:      members,
		log:          log.Named("registry"),
	}
}

// Register adds conn to its user's connection set and joins the user to channelIDs. It reports
// whether this is the user's first live connection.
func (r *Registry) Register(conn Conn, channelIDs []int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID := conn.UserID()
	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[string]Conn)
		r.users[userID] = conns
	}
	conns[conn.ID()] = conn
	for _, channelID := range channelIDs {
		r.joinLocked(channelID, userID)
	}
	return !ok
}

// Unregister removes conn. When it was the user's last connection the user is dropped from every
// channel set and Unregister reports true.
func (r *Registry) Unregister(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID := conn.UserID()
	conns, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, exists := conns[conn.ID()]; !exists {
		return false
	}
	delete(conns, conn.ID())
	if len(conns) > 0 {
		return false
	}
	delete(r.users, userID)
	for channelID := range r.userChannels[userID] {
		r.leaveLocked(channelID, userID)
	}
	delete(r.userChannels, userID)
	return true
}

// JoinChannel records connected users as members of channelID. Users without a live connection are
// ignored; they are joined on their next Register.
func (r *Registry) JoinChannel(channelID int64, userIDs ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, userID := range userIDs {
		if _, online := r.users[userID]; online {
			r.joinLocked(channelID, userID)
		}
	}
}

func (r *Registry) LeaveChannel(channelID int64, userIDs ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, userID := range userIDs {
		r.leaveLocked(channelID, userID)
	}
}

func (r *Registry) joinLocked(channelID, userID int64) {
	members, ok := r.channels[channelID]
	if !ok {
		members = make(map[int64]struct{})
		r.channels[channelID] = members
	}
	members[userID] = struct{}{}
	joined, ok := r.userChannels[userID]
	if !ok {
		joined = make(map[int64]struct{})
		r.userChannels[userID] = joined
	}
	joined[channelID] = struct{}{}
}

func (r *Registry) leaveLocked(channelID, userID int64) {
	if members, ok := r.channels[channelID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.channels, channelID)
		}
	}
	if joined, ok := r.userChannels[userID]; ok {
		delete(joined, channelID)
	}
}

// IsConnected reports whether the user has at least one live connection on this instance.
func (r *Registry) IsConnected(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// ConnectionCount returns the number of live connections on this instance.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, conns := range r.users {
		n += len(conns)
	}
	return n
}

func (r *Registry) connsOf(userID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.users[userID]
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) localMembers(channelID int64) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.channels[channelID]
	out := make([]int64, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	return out
}

// ToUser pushes event to every live connection of userID. No connection means no-op.
func (r *Registry) ToUser(ctx context.Context, userID int64, event models.Event) {
	for _, conn := range r.connsOf(userID) {
		r.deliver(conn, event)
	}
}

// ToChannel resolves the member set through the member source and falls back to the local channel
// map when that fails.
func (r *Registry) ToChannel(ctx context.Context, channelID int64, event models.Event, exclude int64) {
	var members []int64
	if r.members != nil {
		ids, err := r.members.ActiveMemberIDs(ctx, channelID)
		if err != nil {
			r.log.Warn("member lookup failed, using local view", zap.Int64("channel_id", channelID), zap.Error(err))
			ids = r.localMembers(channelID)
		}
		members = ids
	} else {
		members = r.localMembers(channelID)
	}
	for _, userID := range members {
		if userID == exclude {
			continue
		}
		r.ToUser(ctx, userID, event)
	}
}

func (r *Registry) deliver(conn Conn, event models.Event) {
	if conn.Send(event) {
		observability.IncWSEvent("out", event.Type)
		return
	}
	observability.IncBroadcastDrop()
	r.log.Debug("event dropped", zap.String("conn_id", conn.ID()), zap.Int64("user_id", conn.UserID()), zap.String("event", event.Type))
}
