package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Emitter wraps payloads in a versioned envelope and hands them to the event broker.
type Emitter struct {
	publisher   Publisher
	service     string
	environment string
	log         *zap.Logger
}

type Envelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	RequestID     string `json:"request_id,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
	TenantID      int64  `json:"tenant_id"`
	UserID        int64  `json:"user_id,omitempty"`
	Payload       any    `json:"payload"`
}

func NewEmitter(publisher Publisher, service, environment string, log *zap.Logger) *Emitter {
	return &Emitter{
		publisher:   publisher,
		service:     service,
		environment: environment,
		log:         log.Named("emitter"),
	}
}

// Emit publishes payload under routingKey. Errors are returned for the caller's error boundary.
func (e *Emitter) Emit(ctx context.Context, routingKey, eventType string, tenantID, userID int64, payload any) error {
	if e == nil || e.publisher == nil {
		return nil
	}

	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     RequestIDFrom(ctx),
		TraceID:       TraceIDFrom(ctx),
		TenantID:      tenantID,
		UserID:        userID,
		Payload:       payload,
	}
	e.log.Debug("emit", zap.String("routing_key", routingKey), zap.String("event_type", eventType), zap.String("request_id", envelope.RequestID))
	return e.publisher.Publish(ctx, routingKey, envelope)
}
