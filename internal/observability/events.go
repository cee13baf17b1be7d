package observability

import (
	"context"
	"time"
)

// Publisher is satisfied by the rabbitmq and kafka publishers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// EventEnvelope wraps operational events such as websocket lifecycle changes.
type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	OccurredAt string      `json:"occurred_at"`
	RequestID  string      `json:"request_id,omitempty"`
	TraceID    string      `json:"trace_id,omitempty"`
	Payload    interface{} `json:"payload"`
}

func NewEventEnvelope(eventType, eventName, requestID, traceID string, payload interface{}) EventEnvelope {
	return EventEnvelope{
		EventType:  eventType,
		EventName:  eventName,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		RequestID:  requestID,
		TraceID:    traceID,
		Payload:    payload,
	}
}

var (
	defaultPublisher Publisher
	defaultBroker    = "none"
)

// SetPublisher installs the process-wide publisher used by PublishEvent.
func SetPublisher(publisher Publisher, broker string) {
	defaultPublisher = publisher
	defaultBroker = broker
}

func PublishEvent(ctx context.Context, routingKey string, envelope EventEnvelope) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, envelope)
	if err != nil {
		IncBrokerPublishError(defaultBroker)
	}
	return err
}
