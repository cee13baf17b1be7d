package messaging

import (
	"context"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"channel-service/internal/cache"
	"channel-service/internal/config"
	"channel-service/internal/dispatch"
	"channel-service/internal/identity"
	"channel-service/internal/mocks"
	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

const tenant = int64(1)

var (
	alice = models.Principal{UserID: 1, TenantID: tenant, DisplayName: "alice"}
	bob   = models.Principal{UserID: 2, TenantID: tenant, DisplayName: "bob"}
	carol = models.Principal{UserID: 3, TenantID: tenant, DisplayName: "carol"}
)

type memCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	deleted  []string
	patterns []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.deleted = append(c.deleted, k)
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	for k := range c.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type sent struct {
	toUser  bool
	target  int64
	event   models.Event
	exclude int64
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sent
}

func (b *recordingBroadcaster) ToUser(_ context.Context, userID int64, event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sent{toUser: true, target: userID, event: event})
}

func (b *recordingBroadcaster) ToChannel(_ context.Context, channelID int64, event models.Event, exclude int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sent{target: channelID, event: event, exclude: exclude})
}

func (b *recordingBroadcaster) ofType(eventType string) []sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sent
	for _, s := range b.sent {
		if s.event.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return nil
}

// byRecipient returns the last notification type and the notification count per recipient.
func (n *recordingNotifier) byRecipient() (map[int64]string, map[int64]int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := map[int64]string{}
	counts := map[int64]int{}
	for _, note := range n.sent {
		types[note.RecipientID] = note.EventType
		counts[note.RecipientID]++
	}
	return types, counts
}

type recordingRouter struct {
	mu     sync.Mutex
	joined map[int64][]int64
	left   map[int64][]int64
}

func (r *recordingRouter) JoinChannel(channelID int64, userIDs ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joined[channelID] = append(r.joined[channelID], userIDs...)
}

func (r *recordingRouter) LeaveChannel(channelID int64, userIDs ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left[channelID] = append(r.left[channelID], userIDs...)
}

type placeholderDirectory struct{}

func (placeholderDirectory) Profile(_ context.Context, tenantID, userID int64) models.UserProfile {
	return identity.Placeholder(tenantID, userID)
}

func (placeholderDirectory) Profiles(_ context.Context, tenantID int64, userIDs []int64) map[int64]models.UserProfile {
	out := make(map[int64]models.UserProfile, len(userIDs))
	for _, id := range userIDs {
		out[id] = identity.Placeholder(tenantID, id)
	}
	return out
}

type unavailableDispatcher struct{ calls int }

func (d *unavailableDispatcher) Dispatch(context.Context, string, dispatch.Task) error {
	d.calls++
	return dispatch.ErrUnavailable
}

type harness struct {
	channels  *mocks.ChannelRepositoryMock
	messages  *mocks.MessageRepositoryMock
	reactions *mocks.ReactionRepositoryMock
	activity  *mocks.ActivityLoggerMock
	cache     *memCache
	bc        *recordingBroadcaster
	notifier  *recordingNotifier
	router    *recordingRouter
	svc       *Service
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, dispatch.Inline{Log: zap.NewNop()})
}

func newHarnessWith(t *testing.T, d dispatch.Dispatcher) *harness {
	t.Helper()
	h := &harness{
		channels:  new(mocks.ChannelRepositoryMock),
		messages:  new(mocks.MessageRepositoryMock),
		reactions: new(mocks.ReactionRepositoryMock),
		activity:  new(mocks.ActivityLoggerMock),
		cache:     newMemCache(),
		bc:        &recordingBroadcaster{},
		notifier:  &recordingNotifier{},
		router:    &recordingRouter{joined: map[int64][]int64{}, left: map[int64][]int64{}},
	}
	h.activity.On("Log", mock.Anything, mock.Anything).Return(nil).Maybe()
	h.svc = New(Dependencies{
		Channels:  h.channels,
		Messages:  h.messages,
		Reactions: h.reactions,
		Cache:     h.cache,
		CacheConfig: config.CacheConfig{
			MessagePageTTL: time.Minute,
			ChannelListTTL: time.Minute,
			MembershipTTL:  time.Minute,
			UnreadTTL:      time.Minute,
		},
		Broadcaster: h.bc,
		Router:      h.router,
		Notifier:    h.notifier,
		Activity:    h.activity,
		Directory:   placeholderDirectory{},
		Dispatcher:  d,
		Log:         zap.NewNop(),
	})
	h.svc.members.redeleteAfter = 0
	return h
}

func (h *harness) member(channelID, userID int64, role string) {
	h.channels.On("GetParticipant", mock.Anything, channelID, userID).Return(models.Participant{
		ChannelID: channelID,
		UserID:    userID,
		TenantID:  tenant,
		Role:      role,
		IsActive:  true,
	}, nil).Maybe()
}

func (h *harness) nonMember(channelID, userID int64) {
	h.channels.On("GetParticipant", mock.Anything, channelID, userID).
		Return(models.Participant{}, repositories.ErrParticipantNotFound).Maybe()
}

func (h *harness) channel(ch models.Channel) {
	if ch.TenantID == 0 {
		ch.TenantID = tenant
	}
	if ch.Kind == "" {
		ch.Kind = models.ChannelKindGroup
	}
	h.channels.On("GetChannel", mock.Anything, ch.ID).Return(ch, nil).Maybe()
}

func (h *harness) activeMembers(channelID int64, ids ...int64) {
	h.channels.On("ActiveMemberIDs", mock.Anything, channelID).Return(ids, nil).Maybe()
}

func (h *harness) participants(channelID int64, parts ...models.Participant) {
	for i := range parts {
		parts[i].ChannelID = channelID
		parts[i].TenantID = tenant
		parts[i].IsActive = true
		if parts[i].Role == "" {
			parts[i].Role = models.RoleMember
		}
	}
	h.channels.On("ListParticipants", mock.Anything, channelID).Return(parts, nil).Maybe()
}

func (h *harness) message(msg models.Message) {
	if msg.TenantID == 0 {
		msg.TenantID = tenant
	}
	h.messages.On("GetMessage", mock.Anything, msg.ID).Return(msg, nil).Maybe()
}

func contains(keys []string, want ...string) bool {
	set := map[string]bool{}
	for _, k := range keys {
		set[k] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}
