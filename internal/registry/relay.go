package registry

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"channel-service/internal/models"
	"channel-service/internal/observability"
)

const (
	targetUser    = "user"
	targetChannel = "channel"
)

type relayEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type relayEnvelope struct {
	Origin   string     `json:"origin"`
	Target   string     `json:"target"`
	TargetID int64      `json:"target_id"`
	Exclude  int64      `json:"exclude,omitempty"`
	Event    relayEvent `json:"event"`
}

// Relay delivers locally and republishes every broadcast on a redis pub/sub channel so other
// instances can deliver to the connections they hold. Envelopes carry the publishing instance id
// and an instance ignores its own.
type Relay struct {
	local      Broadcaster
	client     redis.UniversalClient
	channel    string
	instanceID string
	log        *zap.Logger
}

func NewRelay(local Broadcaster, client redis.UniversalClient, channel, instanceID string, log *zap.Logger) *Relay {
	return &Relay{
		local:      local,
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		log:        log.Named("relay"),
	}
}

func (r *Relay) ToUser(ctx context.Context, userID int64, event models.Event) {
	r.local.ToUser(ctx, userID, event)
	r.publish(ctx, targetUser, userID, 0, event)
}

func (r *Relay) ToChannel(ctx context.Context, channelID int64, event models.Event, exclude int64) {
	r.local.ToChannel(ctx, channelID, event, exclude)
	r.publish(ctx, targetChannel, channelID, exclude, event)
}

func (r *Relay) publish(ctx context.Context, target string, targetID, exclude int64, event models.Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		r.log.Warn("relay encode failed", zap.String("event", event.Type), zap.Error(err))
		return
	}
	payload, err := json.Marshal(relayEnvelope{
		Origin:   r.instanceID,
		Target:   target,
		TargetID: targetID,
		Exclude:  exclude,
		Event:    relayEvent{Type: event.Type, Data: data},
	})
	if err != nil {
		return
	}
	if err := r.client.Publish(context.WithoutCancel(ctx), r.channel, payload).Err(); err != nil {
		r.log.Warn("relay publish failed", zap.String("event", event.Type), zap.Error(err))
		return
	}
	observability.IncRelayMessage("out")
}

// Run subscribes to the relay channel and delivers foreign envelopes locally until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.log.Info("relay subscribed", zap.String("channel", r.channel), zap.String("instance_id", r.instanceID))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("relay subscription closed")
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn("relay decode failed", zap.Error(err))
		return
	}
	if env.Origin == r.instanceID {
		return
	}
	observability.IncRelayMessage("in")
	event := models.Event{Type: env.Event.Type}
	if len(env.Event.Data) > 0 && string(env.Event.Data) != "null" {
		event.Data = env.Event.Data
	}
	switch env.Target {
	case targetUser:
		r.local.ToUser(ctx, env.TargetID, event)
	case targetChannel:
		r.local.ToChannel(ctx, env.TargetID, event, env.Exclude)
	}
}
