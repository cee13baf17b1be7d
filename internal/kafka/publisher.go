package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"channel-service/internal/telemetry"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes events to a single topic keyed by routing key, so events sharing a key keep
// their relative order.
type Publisher struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
}

func NewPublisher(brokers []string, topic string, log *zap.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are empty")
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	return &Publisher{writer: w, topic: topic, log: log.Named("kafka")}, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, event any) error {
	msg, err := buildMessage(routingKey, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("kafka publish failed", zap.String("topic", p.topic), zap.String("routing_key", routingKey), zap.Error(err))
		return err
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func buildMessage(routingKey string, event any) (kafkago.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, err
	}
	headers := []kafkago.Header{{Key: "routing_key", Value: []byte(routingKey)}}
	if envelope, ok := event.(telemetry.Envelope); ok {
		headers = append(headers, kafkago.Header{Key: "event_type", Value: []byte(envelope.EventType)})
		if envelope.RequestID != "" {
			headers = append(headers, kafkago.Header{Key: "x-request-id", Value: []byte(envelope.RequestID)})
		}
	}
	return kafkago.Message{
		Key:     []byte(routingKey),
		Value:   body,
		Headers: headers,
		Time:    time.Now(),
	}, nil
}
